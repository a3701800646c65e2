package credits

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/askbase/knowledge-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTeams struct {
	key   *entity.TeamKey
	err   error
	calls int
}

func (f *fakeTeams) GetTeamKey(context.Context, string) (*entity.TeamKey, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.key == nil {
		return &entity.TeamKey{HasKey: false}, nil
	}
	return f.key, nil
}

// fakeLedger mimics the atomic conditional decrement in memory.
type fakeLedger struct {
	mu        sync.Mutex
	balance   int64
	costs     map[entity.CreditAction]int64
	deductErr error
	deducts   int
}

func (f *fakeLedger) GetBalance(context.Context, string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, nil
}

func (f *fakeLedger) GetCost(_ context.Context, action entity.CreditAction) (int64, error) {
	cost, ok := f.costs[action]
	if !ok {
		return 0, fmt.Errorf("no cost for %s", action)
	}
	return cost, nil
}

func (f *fakeLedger) Deduct(_ context.Context, _ string, _ entity.CreditAction, amount int64, _ map[string]any) (*entity.DeductionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deducts++
	if f.deductErr != nil {
		return nil, f.deductErr
	}
	if f.balance < amount {
		return &entity.DeductionResult{Success: false, Balance: f.balance}, nil
	}
	f.balance -= amount
	return &entity.DeductionResult{Success: true, Balance: f.balance}, nil
}

func strptr(s string) *string { return &s }

func newTestResolver(teams *fakeTeams, ledger *fakeLedger, serverKey string) *Resolver {
	return NewResolver(teams, ledger, serverKey, zap.NewNop())
}

func TestResolve_BYOKWins(t *testing.T) {
	teams := &fakeTeams{key: &entity.TeamKey{HasKey: true, Key: "team-key", TeamName: "acme"}}
	r := newTestResolver(teams, &fakeLedger{}, "server-key")

	cred, err := r.Resolve(context.Background(), Request{
		UserID:  strptr("u1"),
		BYOKKey: "user-key",
		Action:  entity.ActionQuestion,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.KeySourceBYOK, cred.KeySource)
	assert.Equal(t, "user-key", cred.ResolvedKey)
	assert.False(t, cred.Metered())
	assert.Zero(t, teams.calls, "BYOK must short-circuit the waterfall")
}

func TestResolve_TeamBeforeCredits(t *testing.T) {
	teams := &fakeTeams{key: &entity.TeamKey{HasKey: true, Key: "team-key", TeamName: "acme"}}
	r := newTestResolver(teams, &fakeLedger{}, "server-key")

	cred, err := r.Resolve(context.Background(), Request{
		UserID: strptr("u1"),
		Action: entity.ActionQuestion,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.KeySourceTeam, cred.KeySource)
	assert.Equal(t, "team-key", cred.ResolvedKey)
	require.NotNil(t, cred.TeamName)
	assert.Equal(t, "acme", *cred.TeamName)
	assert.False(t, cred.Metered())
}

func TestResolve_CreditsPath(t *testing.T) {
	ledger := &fakeLedger{balance: 10, costs: map[entity.CreditAction]int64{entity.ActionQuestion: 1}}
	r := newTestResolver(&fakeTeams{}, ledger, "server-key")

	cred, err := r.Resolve(context.Background(), Request{
		UserID: strptr("u1"),
		Action: entity.ActionQuestion,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.KeySourceCredits, cred.KeySource)
	assert.Equal(t, "server-key", cred.ResolvedKey)
	assert.Equal(t, int64(1), cred.CostInCredits)
	assert.True(t, cred.Metered())
	assert.Equal(t, 0, ledger.deducts, "resolution must not deduct")
}

// 3 pages at 1 credit each against a balance of 2.
func TestResolve_InsufficientCredits(t *testing.T) {
	ledger := &fakeLedger{balance: 2, costs: map[entity.CreditAction]int64{entity.ActionPageUpload: 1}}
	r := newTestResolver(&fakeTeams{}, ledger, "server-key")

	_, err := r.Resolve(context.Background(), Request{
		UserID:   strptr("u1"),
		Action:   entity.ActionPageUpload,
		Quantity: 3,
	})

	var insufficientErr *entity.InsufficientCreditsError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, int64(3), insufficientErr.Needed)
	assert.Equal(t, int64(2), insufficientErr.Available)
	assert.Equal(t, 0, ledger.deducts)
}

// Unauthenticated caller, no BYOK, server key configured.
func TestResolve_AuthRequired(t *testing.T) {
	r := newTestResolver(&fakeTeams{}, &fakeLedger{}, "server-key")

	_, err := r.Resolve(context.Background(), Request{Action: entity.ActionQuestion})
	assert.ErrorIs(t, err, entity.ErrAuthRequired)
}

func TestResolve_NoServerKey(t *testing.T) {
	r := newTestResolver(&fakeTeams{}, &fakeLedger{}, "")

	_, err := r.Resolve(context.Background(), Request{
		UserID: strptr("u1"),
		Action: entity.ActionQuestion,
	})
	assert.ErrorIs(t, err, entity.ErrNoServerKey)
}

func TestMeter_SingleAtomicDeductionForUnits(t *testing.T) {
	ledger := &fakeLedger{balance: 20, costs: map[entity.CreditAction]int64{entity.ActionTranscriptionMinute: 2}}
	r := newTestResolver(&fakeTeams{}, ledger, "server-key")

	cred, err := r.Resolve(context.Background(), Request{
		UserID:   strptr("u1"),
		Action:   entity.ActionTranscriptionMinute,
		Quantity: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), cred.CostInCredits)

	info := r.Meter(context.Background(), cred, "u1", entity.ActionTranscriptionMinute, map[string]any{"minutes": 5})
	require.NotNil(t, info)
	assert.Equal(t, int64(10), info.Used)
	assert.Equal(t, int64(10), info.Remaining)
	assert.Equal(t, 1, ledger.deducts, "per-unit actions settle as one atomic deduction")
}

func TestMeter_SkipsUnmeteredModes(t *testing.T) {
	ledger := &fakeLedger{}
	r := newTestResolver(&fakeTeams{}, ledger, "server-key")

	info := r.Meter(context.Background(), &entity.CredentialContext{KeySource: entity.KeySourceBYOK}, "u1", entity.ActionQuestion, nil)
	assert.Nil(t, info)
	assert.Equal(t, 0, ledger.deducts)
}

func TestMeter_FailureIsSwallowed(t *testing.T) {
	ledger := &fakeLedger{
		balance:   10,
		costs:     map[entity.CreditAction]int64{entity.ActionQuestion: 1},
		deductErr: fmt.Errorf("db down"),
	}
	r := newTestResolver(&fakeTeams{}, ledger, "server-key")

	cred, err := r.Resolve(context.Background(), Request{UserID: strptr("u1"), Action: entity.ActionQuestion})
	require.NoError(t, err)

	// The answer was already produced; a failed deduction must not
	// surface to the caller.
	info := r.Meter(context.Background(), cred, "u1", entity.ActionQuestion, nil)
	assert.Nil(t, info)
}

func TestConcurrentDeductions_NeverNegative(t *testing.T) {
	ledger := &fakeLedger{balance: 5, costs: map[entity.CreditAction]int64{entity.ActionQuestion: 1}}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ledger.Deduct(context.Background(), "u1", entity.ActionQuestion, 1, nil)
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, ledger.balance, int64(0))
	assert.Equal(t, int64(0), ledger.balance)
}

func TestResolve_TeamLookupCached(t *testing.T) {
	teams := &fakeTeams{key: &entity.TeamKey{HasKey: true, Key: "k", TeamName: "acme"}}
	r := newTestResolver(teams, &fakeLedger{}, "server-key")

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(context.Background(), Request{UserID: strptr("u1"), Action: entity.ActionQuestion})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, teams.calls)
}
