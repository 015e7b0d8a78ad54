package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/odvoz/internal/auth"
	"github.com/erazemk/odvoz/internal/db"
	"github.com/erazemk/odvoz/internal/model"
	"github.com/erazemk/odvoz/internal/store"
)

const (
	testJWTSecret = "test-secret"
	testPassword  = "password123"
)

type testEnv struct {
	server *httptest.Server
	db     *sql.DB

	adminID, userID, otherID, receiverID string
	admin, user, other, receiver         string
}

func setupTestServer(t *testing.T, opts Options) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	server := httptest.NewServer(NewRouter(database, testJWTSecret, opts))
	t.Cleanup(server.Close)

	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)

	newUser := func(name, email, role string) string {
		u, err := store.CreateUser(ctx, database, name, email, "040", string(hash), role)
		if err != nil {
			t.Fatalf("creating %s: %v", email, err)
		}
		store.SetUserApproved(ctx, database, u.ID, true)
		return u.ID
	}

	env := &testEnv{server: server, db: database}
	env.adminID = newUser("Admin", "admin@example.com", model.RoleAdmin)
	env.userID = newUser("Una", "una@example.com", model.RoleUser)
	env.otherID = newUser("Oto", "oto@example.com", model.RoleUser)

	rcv, err := store.CreateReceiver(ctx, database, "Rok", "rok@example.com", "555", string(hash))
	if err != nil {
		t.Fatalf("creating receiver: %v", err)
	}
	store.SetReceiverApproved(ctx, database, rcv.ID, true)
	env.receiverID = rcv.ID

	// The admin token goes through the login endpoint.
	env.admin = env.login(t, "admin@example.com", testPassword)
	env.user, _ = auth.GenerateToken(testJWTSecret, env.userID, "una@example.com", model.RoleUser)
	env.other, _ = auth.GenerateToken(testJWTSecret, env.otherID, "oto@example.com", model.RoleUser)
	env.receiver, _ = auth.GenerateToken(testJWTSecret, env.receiverID, "rok@example.com", model.RoleReceiver)

	return env
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	resp, body := e.do(t, "POST", "/api/auth/login", "", map[string]string{"email": email, "password": password})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d %s", resp.StatusCode, body)
	}

	var out loginResponse
	json.Unmarshal(body, &out)
	if out.Token == "" {
		t.Fatal("empty token from login")
	}
	return out.Token
}

// do sends a JSON request and returns the response with its body read.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	return send(t, req)
}

func send(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func newRequestBody() map[string]any {
	return map[string]any{
		"user_email":       "una@example.com",
		"full_name":        "Una",
		"recycle_item":     "Laptop",
		"model":            "T480",
		"device_condition": "working",
		"accessories":      []string{"charger"},
		"pickup_date":      "2026-11-02",
		"pickup_time":      "10:00",
		"address":          "Trubarjeva 1",
	}
}

func (e *testEnv) createRequest(t *testing.T, token string) model.PickupRequest {
	t.Helper()
	resp, body := e.do(t, "POST", "/api/requests", token, newRequestBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create request: %d %s", resp.StatusCode, body)
	}
	var r model.PickupRequest
	json.Unmarshal(body, &r)
	return r
}

func (e *testEnv) mailbox(t *testing.T, token string) []model.Notification {
	t.Helper()
	resp, body := e.do(t, "GET", "/api/notifications", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list notifications: %d %s", resp.StatusCode, body)
	}
	var list []model.Notification
	json.Unmarshal(body, &list)
	return list
}

func errorField(body []byte) string {
	var out map[string]string
	json.Unmarshal(body, &out)
	return out["field"]
}

func TestLoginEndpoint(t *testing.T) {
	env := setupTestServer(t, Options{})

	resp, _ := env.do(t, "POST", "/api/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}

	resp, body := env.do(t, "POST", "/api/auth/login", "", map[string]string{
		"email": "ROK@example.com", "password": testPassword,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("receiver login: %d %s", resp.StatusCode, body)
	}
	var out loginResponse
	json.Unmarshal(body, &out)
	if out.Role != model.RoleReceiver || out.ID != env.receiverID {
		t.Errorf("unexpected login response %+v", out)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	env := setupTestServer(t, Options{})

	for _, path := range []string{"/api/requests", "/api/notifications", "/api/users"} {
		resp, _ := env.do(t, "GET", path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s: expected 401, got %d", path, resp.StatusCode)
		}
	}

	resp, _ := env.do(t, "GET", "/api/requests", "not-a-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for garbage token, got %d", resp.StatusCode)
	}
}

func TestCreateRequestScenario(t *testing.T) {
	env := setupTestServer(t, Options{})

	body := newRequestBody()
	delete(body, "pickup_date")

	resp, data := env.do(t, "POST", "/api/requests", env.user, body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if field := errorField(data); field != "pickup_date" {
		t.Errorf("expected error naming pickup_date, got %q", field)
	}

	resp, _ = env.do(t, "POST", "/api/requests", env.receiver, body)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for receiver, got %d", resp.StatusCode)
	}

	r := env.createRequest(t, env.user)
	if r.Status != model.StatusPending || r.AssignedReceiver != model.NotAssigned || r.UserID != env.userID {
		t.Errorf("unexpected created request %+v", r)
	}

	if got := env.mailbox(t, env.user); len(got) != 1 {
		t.Errorf("expected submission notification, got %d", len(got))
	}
	if got := env.mailbox(t, env.admin); len(got) != 1 {
		t.Errorf("expected admin notification, got %d", len(got))
	}
}

func TestApproveScenario(t *testing.T) {
	env := setupTestServer(t, Options{})
	r := env.createRequest(t, env.user)
	path := "/api/requests/" + r.ID

	resp, data := env.do(t, "PATCH", path, env.admin, map[string]string{"status": "approved"})
	if resp.StatusCode != http.StatusBadRequest || errorField(data) != "assigned_receiver" {
		t.Errorf("expected 400 naming assigned_receiver, got %d %s", resp.StatusCode, data)
	}

	before := len(env.mailbox(t, env.user))

	resp, data = env.do(t, "PATCH", path, env.admin, map[string]string{
		"status":            "approved",
		"assigned_receiver": env.receiverID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve: %d %s", resp.StatusCode, data)
	}
	var updated model.PickupRequest
	json.Unmarshal(data, &updated)
	if updated.Status != model.StatusApproved || updated.AssignedReceiver != env.receiverID {
		t.Errorf("unexpected state %s/%s", updated.Status, updated.AssignedReceiver)
	}

	if got := len(env.mailbox(t, env.user)); got != before+1 {
		t.Errorf("expected one new owner notification, got %d", got-before)
	}
	if got := env.mailbox(t, env.receiver); len(got) != 1 || got[0].ReceiverID != env.receiverID {
		t.Errorf("expected one receiver notification, got %+v", got)
	}

	// The receiver can now see and advance the request.
	resp, data = env.do(t, "PATCH", path, env.receiver, map[string]string{"status": "received_by_receiver"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("collect: %d %s", resp.StatusCode, data)
	}
	json.Unmarshal(data, &updated)
	if updated.Status != model.StatusCollected {
		t.Errorf("expected collected, got %s", updated.Status)
	}

	resp, _ = env.do(t, "PATCH", path, env.user, map[string]string{"status": "recycled"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for owner status change, got %d", resp.StatusCode)
	}
}

func TestGetRequestVisibility(t *testing.T) {
	env := setupTestServer(t, Options{})
	r := env.createRequest(t, env.user)

	resp, _ := env.do(t, "GET", "/api/requests/"+r.ID, env.user, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("owner: expected 200, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, "GET", "/api/requests/"+r.ID, env.other, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("other user: expected 403, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, "GET", "/api/requests/"+r.ID, env.receiver, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("unassigned receiver: expected 403, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, "GET", "/api/requests/missing", env.admin, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing: expected 404, got %d", resp.StatusCode)
	}
}

func TestDeleteRequestsIsolation(t *testing.T) {
	env := setupTestServer(t, Options{})
	env.createRequest(t, env.user)
	env.createRequest(t, env.user)
	env.createRequest(t, env.other)

	for _, want := range []int64{2, 0} {
		resp, data := env.do(t, "DELETE", "/api/requests", env.user, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("delete: %d %s", resp.StatusCode, data)
		}
		var out map[string]int64
		json.Unmarshal(data, &out)
		if out["deleted_count"] != want {
			t.Errorf("expected %d deleted, got %d", want, out["deleted_count"])
		}
	}

	resp, data := env.do(t, "GET", "/api/requests", env.other, nil)
	var list []model.PickupRequest
	json.Unmarshal(data, &list)
	if resp.StatusCode != http.StatusOK || len(list) != 1 {
		t.Errorf("other user's requests affected: %d, %d left", resp.StatusCode, len(list))
	}

	for _, token := range []string{env.admin, env.receiver} {
		resp, _ := env.do(t, "DELETE", "/api/requests", token, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403, got %d", resp.StatusCode)
		}
	}
}

func TestListPagination(t *testing.T) {
	env := setupTestServer(t, Options{})
	for range 3 {
		env.createRequest(t, env.user)
	}

	resp, data := env.do(t, "GET", "/api/requests?limit=2&offset=0", env.admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: %d %s", resp.StatusCode, data)
	}
	var list []model.PickupRequest
	json.Unmarshal(data, &list)
	if len(list) != 2 {
		t.Errorf("expected 2 on the page, got %d", len(list))
	}
	if total := resp.Header.Get("X-Total-Count"); total != "3" {
		t.Errorf("expected X-Total-Count 3, got %q", total)
	}

	resp, data = env.do(t, "GET", "/api/requests?limit=abc", env.admin, nil)
	if resp.StatusCode != http.StatusBadRequest || errorField(data) != "limit" {
		t.Errorf("expected 400 naming limit, got %d %s", resp.StatusCode, data)
	}

	resp, data = env.do(t, "GET", "/api/requests?status=received", env.admin, nil)
	json.Unmarshal(data, &list)
	if resp.StatusCode != http.StatusOK || len(list) != 0 {
		t.Errorf("expected empty collected list, got %d (%d)", len(list), resp.StatusCode)
	}
}

func TestBulkStatus(t *testing.T) {
	env := setupTestServer(t, Options{})
	env.createRequest(t, env.user)
	env.createRequest(t, env.other)

	resp, _ := env.do(t, "PATCH", "/api/requests", env.user, map[string]string{"status": "recycled"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for user bulk update, got %d", resp.StatusCode)
	}

	resp, data := env.do(t, "PATCH", "/api/requests", env.admin, map[string]string{"status": "nonsense"})
	if resp.StatusCode != http.StatusBadRequest || errorField(data) != "status" {
		t.Errorf("expected 400 naming status, got %d %s", resp.StatusCode, data)
	}

	resp, data = env.do(t, "PATCH", "/api/requests", env.admin, map[string]string{"status": "collected"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bulk: %d %s", resp.StatusCode, data)
	}
	var out map[string]int
	json.Unmarshal(data, &out)
	if out["modified_count"] != 2 {
		t.Errorf("expected 2 modified, got %d", out["modified_count"])
	}
}

func TestRoleCheckedBeforeBody(t *testing.T) {
	env := setupTestServer(t, Options{})

	raw := func(method, token, body string) *http.Response {
		req, _ := http.NewRequest(method, env.server.URL+"/api/requests", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		resp, _ := send(t, req)
		return resp
	}

	if resp := raw("POST", env.receiver, "{not json"); resp.StatusCode != http.StatusForbidden {
		t.Errorf("receiver create with malformed body: expected 403, got %d", resp.StatusCode)
	}
	if resp := raw("PATCH", env.receiver, "{}"); resp.StatusCode != http.StatusForbidden {
		t.Errorf("receiver bulk update without status: expected 403, got %d", resp.StatusCode)
	}
	if resp := raw("PATCH", env.user, "{not json"); resp.StatusCode != http.StatusForbidden {
		t.Errorf("user bulk update with malformed body: expected 403, got %d", resp.StatusCode)
	}

	resp, data := env.do(t, "PATCH", "/api/requests", env.admin, map[string]string{})
	if resp.StatusCode != http.StatusBadRequest || errorField(data) != "status" {
		t.Errorf("admin bulk update without status: expected 400 naming status, got %d %s", resp.StatusCode, data)
	}
	if resp := raw("POST", env.user, "{not json"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("user create with malformed body: expected 400, got %d", resp.StatusCode)
	}
}

func TestBulkPendingAllowsReapproval(t *testing.T) {
	env := setupTestServer(t, Options{})
	r := env.createRequest(t, env.user)
	path := "/api/requests/" + r.ID
	approve := map[string]string{"status": "approved", "assigned_receiver": env.receiverID}

	if resp, data := env.do(t, "PATCH", path, env.admin, approve); resp.StatusCode != http.StatusOK {
		t.Fatalf("approve: %d %s", resp.StatusCode, data)
	}
	if resp, data := env.do(t, "PATCH", "/api/requests", env.admin, map[string]string{"status": "pending"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("bulk pending: %d %s", resp.StatusCode, data)
	}

	resp, _ := env.do(t, "GET", path, env.receiver, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("former receiver: expected 403, got %d", resp.StatusCode)
	}

	resp, data := env.do(t, "PATCH", path, env.admin, approve)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("re-approve: %d %s", resp.StatusCode, data)
	}
	var updated model.PickupRequest
	json.Unmarshal(data, &updated)
	if updated.AssignedReceiver != env.receiverID || updated.ReceiverEmail != "rok@example.com" {
		t.Errorf("unexpected assignment %s/%s", updated.AssignedReceiver, updated.ReceiverEmail)
	}
}

func TestRoleBasedAccess(t *testing.T) {
	env := setupTestServer(t, Options{})

	for _, path := range []string{"/api/users", "/api/receivers", "/api/feedback"} {
		resp, _ := env.do(t, "GET", path, env.user, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("GET %s as user: expected 403, got %d", path, resp.StatusCode)
		}
		resp, _ = env.do(t, "GET", path, env.admin, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s as admin: expected 200, got %d", path, resp.StatusCode)
		}
	}

	token, _ := auth.GenerateToken(testJWTSecret, "x", "x@example.com", "guest")
	resp, _ := env.do(t, "GET", "/api/requests", token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("unknown role: expected 403, got %d", resp.StatusCode)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := setupTestServer(t, Options{})
	token := env.login(t, "una@example.com", testPassword)

	resp, _ := env.do(t, "POST", "/api/auth/logout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: %d", resp.StatusCode)
	}

	resp, _ = env.do(t, "GET", "/api/requests", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestChangePassword(t *testing.T) {
	env := setupTestServer(t, Options{})

	resp, _ := env.do(t, "PUT", "/api/auth/password", env.receiver, map[string]string{
		"current_password": "wrong-password", "new_password": "new-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong current password, got %d", resp.StatusCode)
	}

	resp, data := env.do(t, "PUT", "/api/auth/password", env.receiver, map[string]string{
		"current_password": testPassword, "new_password": "new-password",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("change password: %d %s", resp.StatusCode, data)
	}
	env.login(t, "rok@example.com", "new-password")
}

func TestTrustedIdentityHeaders(t *testing.T) {
	withHeaders := func(env *testEnv, id, role string) *http.Response {
		req, _ := http.NewRequest("GET", env.server.URL+"/api/requests", nil)
		req.Header.Set("x-user-id", id)
		req.Header.Set("x-user-role", role)
		resp, _ := send(t, req)
		return resp
	}

	strict := setupTestServer(t, Options{})
	if resp := withHeaders(strict, strict.userID, model.RoleUser); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("headers must be ignored by default, got %d", resp.StatusCode)
	}

	trusting := setupTestServer(t, Options{TrustIdentityHeaders: true})
	if resp := withHeaders(trusting, trusting.userID, model.RoleUser); resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with trusted headers, got %d", resp.StatusCode)
	}
	if resp := withHeaders(trusting, trusting.userID, "guest"); resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for unknown role, got %d", resp.StatusCode)
	}
	if resp := withHeaders(trusting, "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without identity, got %d", resp.StatusCode)
	}
	if resp := withHeaders(trusting, model.NotAssigned, model.RoleReceiver); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for the unassigned sentinel as identity, got %d", resp.StatusCode)
	}
}

func TestSignupAndApproval(t *testing.T) {
	env := setupTestServer(t, Options{})

	resp, data := env.do(t, "POST", "/api/users", "", map[string]string{
		"name": "Short", "email": "short@example.com", "phone": "1", "password": "123",
	})
	if resp.StatusCode != http.StatusBadRequest || errorField(data) != "password" {
		t.Errorf("expected 400 naming password, got %d %s", resp.StatusCode, data)
	}

	resp, _ = env.do(t, "POST", "/api/users", "", map[string]string{
		"name": "Dup", "email": "UNA@example.com", "phone": "1", "password": testPassword,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", resp.StatusCode)
	}

	resp, data = env.do(t, "POST", "/api/users", "", map[string]string{
		"name": "Nova", "email": "nova@example.com", "phone": "1", "password": testPassword,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("user signup: %d %s", resp.StatusCode, data)
	}
	env.login(t, "nova@example.com", testPassword)

	resp, data = env.do(t, "POST", "/api/receivers", "", map[string]string{
		"name": "Eko", "email": "eko@example.com", "phone": "2", "password": testPassword,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("receiver signup: %d %s", resp.StatusCode, data)
	}
	var rcv model.Receiver
	json.Unmarshal(data, &rcv)

	resp, _ = env.do(t, "POST", "/api/auth/login", "", map[string]string{
		"email": "eko@example.com", "password": testPassword,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 before approval, got %d", resp.StatusCode)
	}

	resp, _ = env.do(t, "PUT", "/api/receivers/"+rcv.ID+"/approval", env.admin, map[string]bool{"approved": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve receiver: %d", resp.StatusCode)
	}
	env.login(t, "eko@example.com", testPassword)

	resp, _ = env.do(t, "PUT", "/api/users/missing/approval", env.admin, map[string]bool{"approved": true})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for missing user, got %d", resp.StatusCode)
	}
}

func TestSignupRollsBackOnFailure(t *testing.T) {
	env := setupTestServer(t, Options{})
	if _, err := env.db.Exec(`CREATE TRIGGER block_approval BEFORE UPDATE OF approved ON users
		BEGIN SELECT RAISE(ABORT, 'approval blocked'); END`); err != nil {
		t.Fatal(err)
	}

	signup := map[string]string{"name": "Nova", "email": "nova@example.com", "phone": "1", "password": testPassword}
	resp, _ := env.do(t, "POST", "/api/users", "", signup)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}

	u, err := store.GetUserByEmail(context.Background(), env.db, "nova@example.com")
	if err != nil || u != nil {
		t.Fatalf("expected no user row after failed signup, got %+v (%v)", u, err)
	}

	if _, err := env.db.Exec(`DROP TRIGGER block_approval`); err != nil {
		t.Fatal(err)
	}
	resp, data := env.do(t, "POST", "/api/users", "", signup)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("retry signup: %d %s", resp.StatusCode, data)
	}
	env.login(t, "nova@example.com", testPassword)
}

func TestGetUser(t *testing.T) {
	env := setupTestServer(t, Options{})

	resp, data := env.do(t, "GET", "/api/users/"+env.userID, env.admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get user: %d %s", resp.StatusCode, data)
	}
	var u model.User
	json.Unmarshal(data, &u)
	if u.ID != env.userID || u.Email != "una@example.com" {
		t.Errorf("unexpected user %+v", u)
	}
	if strings.Contains(string(data), "password") {
		t.Errorf("password hash exposed: %s", data)
	}

	resp, _ = env.do(t, "GET", "/api/users/missing", env.admin, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing user: expected 404, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, "GET", "/api/users/"+env.adminID, env.user, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-admin: expected 403, got %d", resp.StatusCode)
	}
}

func TestNotificationsMarkRead(t *testing.T) {
	env := setupTestServer(t, Options{})
	env.createRequest(t, env.user)

	list := env.mailbox(t, env.user)
	if len(list) != 1 || list[0].Read {
		t.Fatalf("unexpected mailbox %+v", list)
	}
	path := "/api/notifications/" + list[0].ID + "/read"

	resp, _ := env.do(t, "PUT", path, env.other, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for someone else's notification, got %d", resp.StatusCode)
	}

	resp, _ = env.do(t, "PUT", path, env.user, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark read: %d", resp.StatusCode)
	}
	if list := env.mailbox(t, env.user); !list[0].Read {
		t.Error("expected notification to be read")
	}
}

func TestFeedbackFlow(t *testing.T) {
	env := setupTestServer(t, Options{})

	resp, data := env.do(t, "POST", "/api/feedback", "", map[string]string{"email": "una@example.com"})
	if resp.StatusCode != http.StatusBadRequest || errorField(data) != "message" {
		t.Errorf("expected 400 naming message, got %d %s", resp.StatusCode, data)
	}

	resp, data = env.do(t, "POST", "/api/feedback", "", map[string]string{
		"name": "Una", "email": "una@example.com", "message": "When do you come?",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create feedback: %d %s", resp.StatusCode, data)
	}
	var fb model.Feedback
	json.Unmarshal(data, &fb)

	admin := env.mailbox(t, env.admin)
	if len(admin) != 1 || !strings.Contains(admin[0].Message, "Una") {
		t.Errorf("unexpected admin mailbox %+v", admin)
	}

	resp, _ = env.do(t, "PUT", "/api/feedback/"+fb.ID+"/response", env.admin, map[string]string{
		"admin_response": "Tomorrow morning.",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("respond: %d", resp.StatusCode)
	}

	user := env.mailbox(t, env.user)
	if len(user) != 1 || !strings.Contains(user[0].Message, "Tomorrow morning.") {
		t.Errorf("unexpected user mailbox %+v", user)
	}
}

func TestUploadRoundTrip(t *testing.T) {
	env := setupTestServer(t, Options{})

	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := range 32 {
		for y := range 32 {
			img.Set(x, y, color.RGBA{0, 128, 0, 255})
		}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "device.png")
	png.Encode(fw, img)
	mw.Close()

	req, _ := http.NewRequest("POST", env.server.URL+"/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+env.user)
	resp, data := send(t, req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload: %d %s", resp.StatusCode, data)
	}

	var out map[string]string
	json.Unmarshal(data, &out)
	if !strings.HasPrefix(out["url"], "/api/uploads/") {
		t.Fatalf("unexpected url %q", out["url"])
	}

	resp, data = env.do(t, "GET", out["url"], env.admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get upload: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", ct)
	}
	if len(data) == 0 {
		t.Error("expected image data")
	}
}
