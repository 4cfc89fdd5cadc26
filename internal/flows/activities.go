package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Cdineshreddy12/Wrapper-sub015/internal/event"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/publish"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/workflow"
	logpkg "github.com/Cdineshreddy12/Wrapper-sub015/pkg/log"
)

// Activity names registered with the orchestrator.
const (
	ActivityCreateOrganization = "create_organization"
	ActivityAllocateCredits    = "allocate_credits"
	ActivitySyncUsers          = "sync_users"
)

const publishedBy = "wrapper"

// Flows wires activity implementations to their dependencies.
type Flows struct {
	store  *Store
	pub    *publish.Publisher
	apps   []string
	logger logpkg.Logger
}

// New returns the flows service. apps lists the downstream applications
// that receive sync events.
func New(store *Store, pub *publish.Publisher, apps []string, logger logpkg.Logger) *Flows {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("flows"))
	}
	return &Flows{store: store, pub: pub, apps: apps, logger: logger}
}

// once guards an activity body with the step marker: a redelivered
// attempt returns the recorded output instead of re-running side
// effects.
func (f *Flows) once(req workflow.ActivityRequest, fn func() workflow.ActivityResult) workflow.ActivityResult {
	if out, ok := f.store.CompletedStep(req.WorkflowID, req.Activity); ok {
		return workflow.Success(out)
	}
	res := fn()
	if res.Outcome == workflow.OutcomeSuccess {
		if err := f.store.MarkStepCompleted(req.WorkflowID, req.Activity, res.Output); err != nil {
			return workflow.Retryable("persist step marker: " + err.Error())
		}
	}
	return res
}

// broadcast publishes one event toward every configured downstream app.
func (f *Flows) broadcast(ctx context.Context, tenantID, eventType, entityType, entityID string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	for _, app := range f.apps {
		_, err := f.pub.Publish(ctx, publish.Request{
			TenantID:            tenantID,
			EventType:           eventType,
			ConsumerApplication: app,
			EntityType:          entityType,
			EntityID:            entityID,
			Data:                payload,
			PublishedBy:         publishedBy,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func classifyPublishErr(err error) workflow.ActivityResult {
	if errors.Is(err, publish.ErrRetriable) {
		return workflow.Retryable(err.Error())
	}
	return workflow.Fatal(err.Error())
}

// CreateOrganizationInput is the payload for create_organization.
type CreateOrganizationInput struct {
	OrganizationID string `json:"organizationId"`
	Name           string `json:"name"`
	Plan           string `json:"plan"`
}

// CreateOrganization persists the organization and announces it.
func (f *Flows) CreateOrganization(ctx context.Context, req workflow.ActivityRequest) workflow.ActivityResult {
	return f.once(req, func() workflow.ActivityResult {
		var in CreateOrganizationInput
		if err := json.Unmarshal(req.Input, &in); err != nil {
			return workflow.Fatal("decode input: " + err.Error())
		}
		if in.OrganizationID == "" || in.Name == "" {
			return workflow.Fatal("create_organization requires organizationId and name")
		}
		org := Organization{ID: in.OrganizationID, TenantID: req.TenantID, Name: in.Name, Plan: in.Plan}
		if err := f.store.PutOrganization(org); err != nil {
			return workflow.Retryable("persist organization: " + err.Error())
		}
		err := f.broadcast(ctx, req.TenantID, event.TypeOrganizationCreated, "organization", org.ID,
			event.OrganizationCreated{OrganizationID: org.ID, Name: org.Name, Plan: org.Plan})
		if err != nil {
			return classifyPublishErr(err)
		}
		out, _ := json.Marshal(map[string]string{"organizationId": org.ID})
		return workflow.Success(out)
	})
}

// AllocateCreditsInput is the payload for allocate_credits.
type AllocateCreditsInput struct {
	AllocationID string `json:"allocationId"`
	Amount       int64  `json:"amount"`
	Reason       string `json:"reason,omitempty"`
}

// AllocateCredits writes the ledger entry and publishes the grant.
func (f *Flows) AllocateCredits(ctx context.Context, req workflow.ActivityRequest) workflow.ActivityResult {
	return f.once(req, func() workflow.ActivityResult {
		var in AllocateCreditsInput
		if err := json.Unmarshal(req.Input, &in); err != nil {
			return workflow.Fatal("decode input: " + err.Error())
		}
		if in.AllocationID == "" {
			return workflow.Fatal("allocate_credits requires allocationId")
		}
		if in.Amount <= 0 {
			return workflow.Fatal(fmt.Sprintf("allocate_credits requires a positive amount, got %d", in.Amount))
		}
		alloc := CreditAllocation{ID: in.AllocationID, TenantID: req.TenantID, Amount: in.Amount, Reason: in.Reason}
		if err := f.store.PutCreditAllocation(alloc); err != nil {
			return workflow.Retryable("persist allocation: " + err.Error())
		}
		err := f.broadcast(ctx, req.TenantID, event.TypeCreditAllocated, "credit_allocation", alloc.ID,
			event.CreditAllocated{AllocationID: alloc.ID, Amount: alloc.Amount, Reason: alloc.Reason})
		if err != nil {
			return classifyPublishErr(err)
		}
		out, _ := json.Marshal(map[string]interface{}{"allocationId": alloc.ID, "amount": alloc.Amount})
		return workflow.Success(out)
	})
}

// SyncUsersInput is the payload for sync_users.
type SyncUsersInput struct {
	Users []event.UserSynced `json:"users"`
}

// SyncUsers mirrors each user into the downstream apps and records the
// sync watermark.
func (f *Flows) SyncUsers(ctx context.Context, req workflow.ActivityRequest) workflow.ActivityResult {
	return f.once(req, func() workflow.ActivityResult {
		var in SyncUsersInput
		if err := json.Unmarshal(req.Input, &in); err != nil {
			return workflow.Fatal("decode input: " + err.Error())
		}
		for _, u := range in.Users {
			if u.UserID == "" || u.Email == "" {
				return workflow.Fatal("sync_users requires userId and email for every user")
			}
			if err := f.broadcast(ctx, req.TenantID, event.TypeUserSynced, "user", u.UserID, u); err != nil {
				return classifyPublishErr(err)
			}
		}
		st := UserSyncState{TenantID: req.TenantID, UserCount: len(in.Users), SyncedAtMs: time.Now().UnixMilli()}
		if err := f.store.PutUserSyncState(st); err != nil {
			return workflow.Retryable("persist sync state: " + err.Error())
		}
		out, _ := json.Marshal(map[string]int{"userCount": len(in.Users)})
		return workflow.Success(out)
	})
}
