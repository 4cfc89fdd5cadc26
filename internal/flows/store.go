package flows

import (
	"encoding/json"
	"errors"
	"time"

	pebblestore "github.com/Cdineshreddy12/Wrapper-sub015/internal/storage/pebble"
)

// ErrNotFound is returned for missing domain entities.
var ErrNotFound = errors.New("flows: entity not found")

// Organization is a provisioned customer organization.
type Organization struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Plan        string `json:"plan"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

// CreditAllocation is one ledger entry granting credits to a tenant.
type CreditAllocation struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Amount      int64  `json:"amount"`
	Reason      string `json:"reason,omitempty"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

// UserSyncState records the last completed user synchronization.
type UserSyncState struct {
	TenantID   string `json:"tenantId"`
	UserCount  int    `json:"userCount"`
	SyncedAtMs int64  `json:"syncedAtMs"`
}

// Store persists the domain entities owned by flows.
//
// Keyspace:
//
//	org/{tenant}/{orgId}        organization record
//	credit/{tenant}/{allocId}   credit ledger entry
//	usersync/{tenant}           last user sync state
//	idem/{workflowId}/{step}    completed-step marker with its output
type Store struct {
	db *pebblestore.DB
}

// NewStore returns a Store over db.
func NewStore(db *pebblestore.DB) *Store { return &Store{db: db} }

func orgKey(tenant, id string) []byte {
	return []byte("org/" + tenant + "/" + id)
}

func creditKey(tenant, id string) []byte {
	return []byte("credit/" + tenant + "/" + id)
}

func userSyncKey(tenant string) []byte {
	return []byte("usersync/" + tenant)
}

func idemKey(workflowID, step string) []byte {
	return []byte("idem/" + workflowID + "/" + step)
}

func (s *Store) putJSON(key []byte, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Set(key, b)
}

func (s *Store) getJSON(key []byte, v interface{}) error {
	b, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(b, v)
}

// PutOrganization stores org, stamping CreatedAtMs when unset.
func (s *Store) PutOrganization(org Organization) error {
	if org.CreatedAtMs == 0 {
		org.CreatedAtMs = time.Now().UnixMilli()
	}
	return s.putJSON(orgKey(org.TenantID, org.ID), &org)
}

// GetOrganization loads one organization.
func (s *Store) GetOrganization(tenant, id string) (Organization, error) {
	var org Organization
	err := s.getJSON(orgKey(tenant, id), &org)
	return org, err
}

// PutCreditAllocation stores one ledger entry.
func (s *Store) PutCreditAllocation(c CreditAllocation) error {
	if c.CreatedAtMs == 0 {
		c.CreatedAtMs = time.Now().UnixMilli()
	}
	return s.putJSON(creditKey(c.TenantID, c.ID), &c)
}

// GetCreditAllocation loads one ledger entry.
func (s *Store) GetCreditAllocation(tenant, id string) (CreditAllocation, error) {
	var c CreditAllocation
	err := s.getJSON(creditKey(tenant, id), &c)
	return c, err
}

// PutUserSyncState records the latest sync.
func (s *Store) PutUserSyncState(st UserSyncState) error {
	return s.putJSON(userSyncKey(st.TenantID), &st)
}

// GetUserSyncState loads the latest sync state.
func (s *Store) GetUserSyncState(tenant string) (UserSyncState, error) {
	var st UserSyncState
	err := s.getJSON(userSyncKey(tenant), &st)
	return st, err
}

// CompletedStep returns the stored output of a previously completed
// idempotent step, if any.
func (s *Store) CompletedStep(workflowID, step string) ([]byte, bool) {
	b, err := s.db.Get(idemKey(workflowID, step))
	if err != nil {
		return nil, false
	}
	return b, true
}

// MarkStepCompleted persists the step marker with its output.
func (s *Store) MarkStepCompleted(workflowID, step string, output []byte) error {
	return s.db.Set(idemKey(workflowID, step), output)
}
