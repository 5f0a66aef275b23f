//go:build cucumber

package resman

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"resman/internal/api"
	"resman/internal/manager"
	"resman/internal/testutil"
	"resman/pkg/resman"
)

// TestResourceManagerFeatures executes the resource manager feature
// scenarios via godog.
func TestResourceManagerFeatures(t *testing.T) {
	featurePath := filepath.Join("..", "..", "spec", "features", "resman", "resource-manager.feature")
	suite := godog.TestSuite{
		Name:                "resman",
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{featurePath},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeScenario wires step definitions for the resource manager
// feature tests.
func InitializeScenario(ctx *godog.ScenarioContext) {
	state := &managerState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, state.reset()
	})
	ctx.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		state.close()
		return ctx, nil
	})

	ctx.Step(`^a "([^"]+)" pool with capacity (\d+)$`, state.givenPool)
	ctx.Step(`^a "([^"]+)" limit of (\d+) "([^"]+)" for "([^"]+)"$`, state.givenLimit)
	ctx.Step(`^user "([^"]+)" allocates (\d+) "([^"]+)"$`, state.allocate)
	ctx.Step(`^user "([^"]+)" allocates (\d+) "([^"]+)" at priority "([^"]+)"$`, state.allocateAtPriority)
	ctx.Step(`^user "([^"]+)" reports (\d+) consumed on the first allocation$`, state.reportUsage)
	ctx.Step(`^user "([^"]+)" releases the first allocation$`, state.release)
	ctx.Step(`^user "([^"]+)" releases the first allocation with token "([^"]+)"$`, state.releaseWithToken)
	ctx.Step(`^the conflict between both allocations is resolved$`, state.resolveConflict)
	ctx.Step(`^the allocation is "([^"]+)"$`, state.allocationStatusIs)
	ctx.Step(`^the denial reason is "([^"]+)" with (\d+) available$`, state.denialReasonIs)
	ctx.Step(`^the "([^"]+)" pool has (\d+) available and (\d+) reserved$`, state.poolStateIs)
	ctx.Step(`^the release is rejected$`, state.releaseRejected)
	ctx.Step(`^the "([^"]+)" allocation wins the conflict$`, state.conflictWinnerHasPriority)
	ctx.Step(`^the usage report for user "([^"]+)" shows (\d+) "([^"]+)" consumed$`, state.usageReportShows)
}

// managerState holds scenario state for the feature tests.
type managerState struct {
	server            *httptest.Server
	baseURL           string
	clock             *testutil.FakeClock
	pools             []resman.ResourcePool
	allocations       []resman.AllocationResult
	priorities        map[string]resman.Priority
	lastResult        resman.AllocationResult
	lastReleaseStatus int
	lastResolution    resman.ConflictResolution
}

// reset clears the scenario state. The HTTP server is started lazily once
// the pools are known.
func (s *managerState) reset() error {
	s.close()
	s.clock = testutil.NewFakeClock(time.Unix(0, 0))
	s.pools = nil
	s.allocations = nil
	s.priorities = map[string]resman.Priority{}
	s.lastResult = resman.AllocationResult{}
	s.lastReleaseStatus = 0
	s.lastResolution = resman.ConflictResolution{}
	return nil
}

// close shuts down the HTTP server if it is running.
func (s *managerState) close() {
	if s.server != nil {
		s.server.Close()
		s.server = nil
	}
}

func (s *managerState) ensureServer() {
	if s.server != nil {
		return
	}
	mgr := manager.New(manager.Config{
		Clock:              s.clock,
		Pools:              s.pools,
		DisableMaintenance: true,
	})
	handler := api.NewHandler(api.Config{Manager: mgr})
	s.server = httptest.NewServer(handler)
	s.baseURL = s.server.URL
}

func (s *managerState) givenPool(resourceType string, capacity int) error {
	if s.server != nil {
		return fmt.Errorf("pools must be declared before the first request")
	}
	s.pools = append(s.pools, resman.ResourcePool{
		Type:          resman.ResourceType(resourceType),
		Capacity:      float64(capacity),
		Available:     float64(capacity),
		CostPerUnit:   0.0001,
		LastReplenish: s.clock.Now(),
	})
	return nil
}

func (s *managerState) givenLimit(scope string, limit int, resourceType, scopeID string) error {
	s.ensureServer()
	cfg := resman.LimitConfig{
		Scope:   resman.Scope(scope),
		ScopeID: scopeID,
		Limits: []resman.ResourceLimit{
			{ResourceType: resman.ResourceType(resourceType), Limit: float64(limit)},
		},
	}
	status, body, err := s.doJSON(http.MethodPut, "/v1/admin/limits", cfg)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("put limit status %d: %s", status, body)
	}
	return nil
}

func (s *managerState) allocate(userID string, amount int, resourceType string) error {
	return s.allocateAtPriority(userID, amount, resourceType, "")
}

func (s *managerState) allocateAtPriority(userID string, amount int, resourceType, priority string) error {
	s.ensureServer()
	payload := map[string]interface{}{
		"request": map[string]interface{}{
			"resources": []map[string]interface{}{
				{"resource_type": resourceType, "amount": amount},
			},
		},
		"context": map[string]interface{}{
			"user_id":  userID,
			"priority": priority,
		},
	}
	status, body, err := s.doJSON(http.MethodPost, "/v1/allocate", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("allocate status %d: %s", status, body)
	}
	var result resman.AllocationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return err
	}
	s.lastResult = result
	if result.Status != resman.StatusDenied {
		s.allocations = append(s.allocations, result)
		if priority != "" {
			s.priorities[result.AllocationID] = resman.Priority(priority)
		}
	}
	return nil
}

func (s *managerState) reportUsage(_ string, consumed int) error {
	first, err := s.firstAllocation()
	if err != nil {
		return err
	}
	payload := map[string]interface{}{
		"allocation_id": first.AllocationID,
		"usage":         map[string]interface{}{"consumed": consumed},
	}
	status, body, err := s.doJSON(http.MethodPost, "/v1/usage", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("usage status %d: %s", status, body)
	}
	return nil
}

func (s *managerState) release(_ string) error {
	first, err := s.firstAllocation()
	if err != nil {
		return err
	}
	return s.releaseAllocation(first.AllocationID, first.Token)
}

func (s *managerState) releaseWithToken(_ string, token string) error {
	first, err := s.firstAllocation()
	if err != nil {
		return err
	}
	return s.releaseAllocation(first.AllocationID, token)
}

func (s *managerState) releaseAllocation(allocationID, token string) error {
	payload := map[string]interface{}{
		"allocation_id": allocationID,
		"token":         token,
	}
	status, _, err := s.doJSON(http.MethodPost, "/v1/release", payload)
	if err != nil {
		return err
	}
	s.lastReleaseStatus = status
	return nil
}

func (s *managerState) resolveConflict() error {
	if len(s.allocations) < 2 {
		return fmt.Errorf("expected two live allocations, have %d", len(s.allocations))
	}
	requesters := make([]string, 0, len(s.allocations))
	for _, a := range s.allocations {
		requesters = append(requesters, a.AllocationID)
	}
	status, body, err := s.doJSON(http.MethodPost, "/v1/conflict/resolve", map[string]interface{}{
		"requesters": requesters,
	})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("resolve status %d: %s", status, body)
	}
	return json.Unmarshal(body, &s.lastResolution)
}

func (s *managerState) allocationStatusIs(expected string) error {
	if string(s.lastResult.Status) != expected {
		return fmt.Errorf("allocation status %q, expected %q", s.lastResult.Status, expected)
	}
	return nil
}

func (s *managerState) denialReasonIs(reason string, available int) error {
	if len(s.lastResult.DeniedResources) == 0 {
		return fmt.Errorf("no denied resources on last result")
	}
	denied := s.lastResult.DeniedResources[0]
	if denied.Reason != reason {
		return fmt.Errorf("denial reason %q, expected %q", denied.Reason, reason)
	}
	if denied.AvailableAmount != float64(available) {
		return fmt.Errorf("available amount %v, expected %d", denied.AvailableAmount, available)
	}
	return nil
}

func (s *managerState) poolStateIs(resourceType string, available, reserved int) error {
	s.ensureServer()
	status, body, err := s.doJSON(http.MethodGet, "/v1/admin/pools", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("pools status %d: %s", status, body)
	}
	var resp struct {
		Pools []resman.ResourcePool `json:"pools"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	for _, pool := range resp.Pools {
		if pool.Type != resman.ResourceType(resourceType) {
			continue
		}
		if pool.Available != float64(available) || pool.Reserved != float64(reserved) {
			return fmt.Errorf("pool %s available %v reserved %v, expected %d/%d",
				resourceType, pool.Available, pool.Reserved, available, reserved)
		}
		return nil
	}
	return fmt.Errorf("pool %s not found", resourceType)
}

func (s *managerState) releaseRejected() error {
	if s.lastReleaseStatus != http.StatusForbidden {
		return fmt.Errorf("release status %d, expected %d", s.lastReleaseStatus, http.StatusForbidden)
	}
	return nil
}

func (s *managerState) conflictWinnerHasPriority(priority string) error {
	if s.lastResolution.Type != "priority" {
		return fmt.Errorf("resolution type %q, expected priority", s.lastResolution.Type)
	}
	winner := s.lastResolution.Winner
	if s.priorities[winner] != resman.Priority(priority) {
		return fmt.Errorf("winner %s has priority %q, expected %q", winner, s.priorities[winner], priority)
	}
	return nil
}

func (s *managerState) usageReportShows(userID string, consumed int, resourceType string) error {
	s.ensureServer()
	path := fmt.Sprintf("/v1/report?scope=USER&scope_id=%s", userID)
	status, body, err := s.doJSON(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("report status %d: %s", status, body)
	}
	var report resman.ResourceAccounting
	if err := json.Unmarshal(body, &report); err != nil {
		return err
	}
	for _, summary := range report.Usage {
		if summary.ResourceType == resman.ResourceType(resourceType) {
			if summary.TotalConsumed != float64(consumed) {
				return fmt.Errorf("total consumed %v, expected %d", summary.TotalConsumed, consumed)
			}
			return nil
		}
	}
	return fmt.Errorf("no usage summary for %s", resourceType)
}

func (s *managerState) firstAllocation() (resman.AllocationResult, error) {
	if len(s.allocations) == 0 {
		return resman.AllocationResult{}, fmt.Errorf("no allocations recorded")
	}
	return s.allocations[0], nil
}

func (s *managerState) doJSON(method, path string, payload interface{}) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, err
	}
	return res.StatusCode, body, nil
}
