package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
)

// TestPollFlow covers the lifecycle: create, read, archive, delete.
func TestPollFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	owner := app.createUser(t)
	voter := app.createUser(t)

	poll := app.createPoll(t, owner, map[string]any{
		"title":       "Flow Test Poll",
		"description": "Testing the basic flow",
	})
	assert.Equal(t, domain.StatusActive, poll.Status)
	assert.Equal(t, domain.AccessRemoteOnly, poll.AccessMode)
	require.Len(t, poll.Options, 2)

	resp := app.request(t, http.MethodGet, "/api/polls/"+poll.ID.String(), &voter, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decode[domain.Poll](t, resp)
	assert.Equal(t, "Flow Test Poll", fetched.Title)
	assert.Equal(t, "Option A", fetched.Options[0].Text)

	resp = app.request(t, http.MethodPost, "/api/polls/"+poll.ID.String()+"/archive", &voter, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = app.request(t, http.MethodPost, "/api/polls/"+poll.ID.String()+"/archive", &owner, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = app.request(t, http.MethodPost, "/api/polls/"+poll.ID.String()+"/vote", &voter, map[string]any{"optionId": poll.Options[0].ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, domain.ReasonPollNotActive, decode[map[string]domain.DenyReason](t, resp)["error"])

	resp = app.request(t, http.MethodDelete, "/api/polls/"+poll.ID.String(), &owner, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = app.request(t, http.MethodGet, "/api/polls/"+poll.ID.String(), &owner, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScheduledPollOpensOnRead(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	owner := app.createUser(t)
	start := time.Now().Add(2 * time.Second).UTC()
	poll := app.createPoll(t, owner, map[string]any{
		"title":   "Scheduled",
		"startAt": start,
	})
	assert.Equal(t, domain.StatusScheduled, poll.Status)

	require.Eventually(t, func() bool {
		resp := app.request(t, http.MethodGet, "/api/polls/"+poll.ID.String(), &owner, nil)
		return decode[domain.Poll](t, resp).Status == domain.StatusActive
	}, 10*time.Second, 250*time.Millisecond)

	var stored string
	require.NoError(t, app.DB.QueryRow("SELECT status FROM polls WHERE id = $1", poll.ID).Scan(&stored))
	assert.Equal(t, string(domain.StatusActive), stored)
}

func TestListPollsSorted(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	owner := app.createUser(t)
	for i := 1; i <= 3; i++ {
		app.createPoll(t, owner, map[string]any{"title": fmt.Sprintf("Poll %d", i)})
		time.Sleep(10 * time.Millisecond)
	}

	resp := app.request(t, http.MethodGet, "/api/polls", &owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	polls := decode[[]domain.Poll](t, resp)
	require.Len(t, polls, 3)
	assert.Equal(t, "Poll 3", polls[0].Title)
	assert.Equal(t, "Poll 1", polls[2].Title)
}
