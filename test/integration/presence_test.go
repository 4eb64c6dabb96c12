package integration

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
)

type credential struct {
	Token           string `json:"token"`
	VerificationURL string `json:"verificationUrl"`
}

func TestOnPremiseFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	owner := app.createUser(t)
	voter := app.createUser(t)
	late := app.createUser(t)
	poll := app.createPoll(t, owner, map[string]any{
		"title":            "Assembly",
		"votingAccessMode": domain.AccessOnPremiseOnly,
	})
	path := "/api/polls/" + poll.ID.String()

	resp := app.request(t, http.MethodPost, path+"/vote", &voter, map[string]any{"optionId": poll.Options[0].ID})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = app.request(t, http.MethodPost, path+"/presence/generate", &owner, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decode[credential](t, resp)

	resp = app.request(t, http.MethodPost, "/api/presence/verify", &voter, map[string]string{"token": first.VerificationURL})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.request(t, http.MethodPost, path+"/presence/generate", &owner, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	second := decode[credential](t, resp)
	assert.NotEqual(t, first.Token, second.Token)

	resp = app.request(t, http.MethodPost, "/api/presence/verify", &late, map[string]string{"token": first.Token})
	assert.Equal(t, http.StatusGone, resp.StatusCode, "a rotated token is no longer redeemable")

	resp = app.request(t, http.MethodPost, "/api/presence/verify", &late, map[string]string{"token": second.Token})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.request(t, http.MethodGet, path+"/presence/status", &voter, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[map[string]any](t, resp)
	assert.Equal(t, true, status["isVerified"])
	assert.Equal(t, false, status["canVoteRemotely"])

	resp = app.request(t, http.MethodPost, path+"/vote", &voter, map[string]any{"optionId": poll.Options[0].ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var verificationType string
	require.NoError(t, app.DB.QueryRow("SELECT verification_type FROM votes WHERE poll_id = $1 AND voter_id = $2", poll.ID, voter.ID).Scan(&verificationType))
	assert.Equal(t, string(domain.VerificationOnPremise), verificationType)
}

func TestScanRedirects(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)
	app.Client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	owner := app.createUser(t)
	voter := app.createUser(t)
	poll := app.createPoll(t, owner, map[string]any{"title": "Hybrid", "votingAccessMode": domain.AccessHybrid})

	resp := app.request(t, http.MethodPost, "/api/polls/"+poll.ID.String()+"/presence/generate", &owner, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	cred := decode[credential](t, resp)

	resp = app.request(t, http.MethodGet, "/api/presence/scan/"+cred.Token, nil, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	login, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, cred.Token, login.Query().Get("presence_token"))

	resp = app.request(t, http.MethodGet, "/api/presence/scan/"+cred.Token, &voter, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "http://polls.test/polls/"+poll.ID.String(), resp.Header.Get("Location"))

	var verified int
	require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM verification_records WHERE poll_id = $1 AND user_id = $2", poll.ID, voter.ID).Scan(&verified))
	assert.Equal(t, 1, verified)
}

func TestInviteOnlyDepartmentAudience(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	owner := app.createUser(t)
	member := app.createUser(t)
	outsider := app.createUser(t)

	deptID := uuid.New()
	_, err := app.DB.Exec("INSERT INTO departments (id, name) VALUES ($1, 'Engineering')", deptID)
	require.NoError(t, err)
	_, err = app.DB.Exec("INSERT INTO department_members (department_id, user_id) VALUES ($1, $2)", deptID, member.ID)
	require.NoError(t, err)

	poll := app.createPoll(t, owner, map[string]any{"title": "Private", "visibility": domain.VisibilityInviteOnly})
	path := "/api/polls/" + poll.ID.String()

	resp := app.request(t, http.MethodPost, path+"/invitations/departments", &owner, map[string]any{"departmentIds": []uuid.UUID{deptID}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[domain.InvitationResult](t, resp)
	assert.Equal(t, []uuid.UUID{member.ID}, result.NewlyReachable)

	resp = app.request(t, http.MethodPost, path+"/vote", &outsider, map[string]any{"optionId": poll.Options[0].ID})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, domain.ReasonNotInvited, decode[map[string]domain.DenyReason](t, resp)["error"])

	_, err = app.DB.Exec("INSERT INTO department_members (department_id, user_id) VALUES ($1, $2)", deptID, outsider.ID)
	require.NoError(t, err)

	resp = app.request(t, http.MethodPost, path+"/vote", &outsider, map[string]any{"optionId": poll.Options[0].ID})
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "membership is resolved at vote time")

	resp = app.request(t, http.MethodGet, path+"/audience", &owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	audience := decode[map[string][]uuid.UUID](t, resp)
	assert.ElementsMatch(t, []uuid.UUID{member.ID, outsider.ID}, audience["userIds"])
}
