package flows

import (
	"encoding/json"

	"github.com/Cdineshreddy12/Wrapper-sub015/internal/workflow"
)

// Workflow types registered with the orchestrator.
const (
	WorkflowOrganizationProvision = "organization.provision"
	WorkflowCreditAllocate        = "credit.allocate"
	WorkflowTenantUsersSync       = "tenant.users.sync"
)

// OrganizationProvisionInput is the submission payload for
// organization.provision.
type OrganizationProvisionInput struct {
	Organization CreateOrganizationInput `json:"organization"`
	Credits      AllocateCreditsInput    `json:"credits"`
	Users        SyncUsersInput          `json:"users"`
}

// Register installs every flow definition and activity on o.
func Register(o *workflow.Orchestrator, f *Flows) {
	o.RegisterActivity(ActivityCreateOrganization, f.CreateOrganization)
	o.RegisterActivity(ActivityAllocateCredits, f.AllocateCredits)
	o.RegisterActivity(ActivitySyncUsers, f.SyncUsers)

	o.RegisterWorkflow(workflow.Definition{
		Type: WorkflowOrganizationProvision,
		Run: func(wf *workflow.Context) (json.RawMessage, error) {
			var in OrganizationProvisionInput
			if err := json.Unmarshal(wf.Input(), &in); err != nil {
				return nil, err
			}
			orgInput, err := json.Marshal(in.Organization)
			if err != nil {
				return nil, err
			}
			orgOut, err := wf.Execute(ActivityCreateOrganization, orgInput)
			if err != nil {
				return nil, err
			}
			creditInput, err := json.Marshal(in.Credits)
			if err != nil {
				return nil, err
			}
			if _, err := wf.Execute(ActivityAllocateCredits, creditInput); err != nil {
				return nil, err
			}
			usersInput, err := json.Marshal(in.Users)
			if err != nil {
				return nil, err
			}
			if _, err := wf.Execute(ActivitySyncUsers, usersInput); err != nil {
				return nil, err
			}
			return orgOut, nil
		},
	})

	o.RegisterWorkflow(workflow.Definition{
		Type: WorkflowCreditAllocate,
		Run: func(wf *workflow.Context) (json.RawMessage, error) {
			return wf.Execute(ActivityAllocateCredits, wf.Input())
		},
	})

	o.RegisterWorkflow(workflow.Definition{
		Type: WorkflowTenantUsersSync,
		Run: func(wf *workflow.Context) (json.RawMessage, error) {
			return wf.Execute(ActivitySyncUsers, wf.Input())
		},
	})
}
