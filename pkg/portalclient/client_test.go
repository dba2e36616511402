package portalclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insureportal-backend/pkg/portalclient"
	"insureportal-backend/portal-service/middleware"
	"insureportal-backend/portal-service/routes"
	"insureportal-backend/portal-service/services"
	"insureportal-backend/shared/config"
	"insureportal-backend/shared/database/dbtest"
	"insureportal-backend/shared/database/models"
	"insureportal-backend/shared/events"
)

func startPortal(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		GinMode:                   gin.TestMode,
		JWTSecret:                 "client-secret",
		JWTExpireHours:            "1",
		AdminAccessKey:            "1924",
		DefaultOrgName:            "System Org",
		UploadMaxFileSize:         "1MB",
		LoginRateLimitMaxAttempts: "0",
	}
	db := dbtest.Open(t)
	storage, err := services.NewDiskStorage(t.TempDir())
	require.NoError(t, err)
	hub := events.NewHub(16)
	limiter := middleware.NewRateLimiter(time.Hour)
	t.Cleanup(limiter.Stop)

	srv := httptest.NewServer(routes.Setup(routes.Dependencies{
		Config:       cfg,
		DB:           db,
		Auth:         services.NewDefaultAuthService(db, cfg),
		Forms:        services.NewFormService(db, hub),
		Uploads:      services.NewUploadService(storage, cfg.GetUploadMaxFileSize()),
		PDF:          services.NewPDFService(),
		WebSocket:    services.NewWebSocketManager(hub),
		LoginLimiter: limiter,
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func loggedIn(t *testing.T, baseURL string, req services.LoginRequest) *portalclient.Client {
	t.Helper()
	client := portalclient.New(baseURL, nil)
	_, err := client.Login(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, client.Token())
	return client
}

func clientLogin(name string) services.LoginRequest {
	return services.LoginRequest{Type: services.LoginTypeClient, FullName: name, DateOfBirth: "1990-01-01"}
}

func adminLogin() services.LoginRequest {
	return services.LoginRequest{Type: services.LoginTypeAdmin, AccessKey: "1924"}
}

func TestClient_FormRoundTrip(t *testing.T) {
	baseURL := startPortal(t)
	ctx := context.Background()
	client := loggedIn(t, baseURL, clientLogin("John Doe"))

	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, me.Role)

	uploaded, err := client.Upload(ctx, "scan.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)

	form, err := client.CreateForm(ctx, services.CreateFormInput{
		ClientName: "John Doe",
		Items: []services.ItemInput{{
			InsuranceType: "Household Insurance",
			Documents:     []services.DocumentInput{{Name: uploaded.Name, FileURL: uploaded.FileURL}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, form.Items, 1)
	require.Len(t, form.Items[0].Documents, 1)
	assert.Equal(t, uploaded.FileURL, form.Items[0].Documents[0].FileURL)

	forms, err := client.ListForms(ctx, portalclient.ListOptions{Status: "Draft", Limit: 5})
	require.NoError(t, err)
	assert.Len(t, forms, 1)

	pdf, fileName, err := client.DownloadSummary(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, "summary-John-Doe.pdf", fileName)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))

	require.NoError(t, client.DeleteForm(ctx, form.ID))
	_, err = client.GetForm(ctx, form.ID)
	assert.True(t, portalclient.IsNotFound(err))

	_, err = portalclient.New(baseURL, nil).Login(ctx, services.LoginRequest{Type: "admin", AccessKey: "nope"})
	var apiErr *portalclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.StatusCode)
	assert.Equal(t, "Invalid Access Key", apiErr.Message)
}

func TestEditorSession_ConflictReloads(t *testing.T) {
	baseURL := startPortal(t)
	ctx := context.Background()
	client := loggedIn(t, baseURL, clientLogin("John Doe"))
	admin := loggedIn(t, baseURL, adminLogin())

	form, err := client.CreateForm(ctx, services.CreateFormInput{
		ClientName: "John Doe",
		Items:      []services.ItemInput{{InsuranceType: "Household Insurance"}},
	})
	require.NoError(t, err)

	clientEditor, err := portalclient.OpenEditor(ctx, client, form.ID, portalclient.EditorOptions{})
	require.NoError(t, err)
	var refreshed atomic.Int32
	adminEditor, err := portalclient.OpenEditor(ctx, admin, form.ID, portalclient.EditorOptions{
		OnRefresh: func(*models.Form) { refreshed.Add(1) },
	})
	require.NoError(t, err)

	assert.NoError(t, clientEditor.Save(ctx), "saving a clean editor is a no-op")
	assert.Equal(t, 1, clientEditor.Form().Version)

	clientEditor.Edit(func(d *portalclient.FormDraft) { d.ClientName = "John Q. Doe" })
	require.True(t, clientEditor.Dirty())
	require.NoError(t, clientEditor.Save(ctx))
	assert.False(t, clientEditor.Dirty())
	assert.Equal(t, 2, clientEditor.Form().Version)

	adminEditor.Edit(func(d *portalclient.FormDraft) {
		price := "150"
		d.Items[0].Price = &price
	})
	err = adminEditor.Save(ctx)
	require.True(t, portalclient.IsConflict(err), "got %v", err)

	assert.False(t, adminEditor.Dirty())
	assert.Equal(t, int32(1), refreshed.Load())
	assert.Equal(t, "John Q. Doe", adminEditor.Draft().ClientName)
	assert.Nil(t, adminEditor.Draft().Items[0].Price, "local edits are dropped")

	adminEditor.Edit(func(d *portalclient.FormDraft) {
		price := "150"
		d.Items[0].Price = &price
	})
	require.NoError(t, adminEditor.Save(ctx))
	assert.Equal(t, 3, adminEditor.Form().Version)
	require.NotNil(t, adminEditor.Form().Items[0].Price)
	assert.Equal(t, "150", *adminEditor.Form().Items[0].Price)
}

func TestEditorSession_PollPicksUpRemoteChanges(t *testing.T) {
	baseURL := startPortal(t)
	ctx := context.Background()
	client := loggedIn(t, baseURL, clientLogin("John Doe"))
	admin := loggedIn(t, baseURL, adminLogin())

	form, err := client.CreateForm(ctx, services.CreateFormInput{ClientName: "John Doe"})
	require.NoError(t, err)

	editor, err := portalclient.OpenEditor(ctx, client, form.ID, portalclient.EditorOptions{})
	require.NoError(t, err)

	changed, err := editor.Poll(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	status := models.FormStatusReviewing
	_, err = admin.UpdateForm(ctx, form.ID, services.UpdateFormInput{Version: &form.Version, Status: &status})
	require.NoError(t, err)

	editor.Edit(func(d *portalclient.FormDraft) { d.ClientName = "Local Edit" })
	changed, err = editor.Poll(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "dirty editors are not refreshed")

	editor2, err := portalclient.OpenEditor(ctx, client, form.ID, portalclient.EditorOptions{})
	require.NoError(t, err)
	_, err = admin.UpdateForm(ctx, form.ID, services.UpdateFormInput{Version: &editor2.Form().Version, ClientName: strPtr("Renamed By Admin")})
	require.NoError(t, err)

	changed, err = editor2.Poll(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "Renamed By Admin", editor2.Draft().ClientName)
	assert.Equal(t, 3, editor2.Form().Version)
}

func TestEditorSession_RunAutosaves(t *testing.T) {
	baseURL := startPortal(t)
	client := loggedIn(t, baseURL, clientLogin("John Doe"))

	form, err := client.CreateForm(context.Background(), services.CreateFormInput{ClientName: "John Doe"})
	require.NoError(t, err)

	var failures atomic.Int32
	editor, err := portalclient.OpenEditor(context.Background(), client, form.ID, portalclient.EditorOptions{
		AutosaveDelay: 50 * time.Millisecond,
		PollInterval:  time.Hour,
		OnError:       func(error) { failures.Add(1) },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- editor.Run(ctx) }()

	editor.Edit(func(d *portalclient.FormDraft) { d.ClientName = "Autosaved" })
	require.Eventually(t, func() bool { return !editor.Dirty() }, 5*time.Second, 20*time.Millisecond)

	stored, err := client.GetForm(context.Background(), form.ID)
	require.NoError(t, err)
	assert.Equal(t, "Autosaved", stored.ClientName)
	assert.Equal(t, 2, stored.Version)

	// Pending edits are flushed when the session stops.
	editor.Edit(func(d *portalclient.FormDraft) { d.ClientName = "Flushed" })
	cancel()
	require.NoError(t, <-done)

	stored, err = client.GetForm(context.Background(), form.ID)
	require.NoError(t, err)
	assert.Equal(t, "Flushed", stored.ClientName)
	assert.Zero(t, failures.Load())
}

// editDuringSave runs onPut once, just before the first PUT leaves the client.
type editDuringSave struct {
	onPut func()
	once  sync.Once
}

func (e *editDuringSave) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodPut && e.onPut != nil {
		e.once.Do(e.onPut)
	}
	return http.DefaultTransport.RoundTrip(req)
}

func TestEditorSession_EditDuringSaveKeepsCreatedRows(t *testing.T) {
	baseURL := startPortal(t)
	ctx := context.Background()

	transport := &editDuringSave{}
	client := portalclient.New(baseURL, &http.Client{Transport: transport})
	_, err := client.Login(ctx, clientLogin("John Doe"))
	require.NoError(t, err)

	form, err := client.CreateForm(ctx, services.CreateFormInput{
		ClientName: "John Doe",
		Items:      []services.ItemInput{{InsuranceType: "Household Insurance"}},
	})
	require.NoError(t, err)

	editor, err := portalclient.OpenEditor(ctx, client, form.ID, portalclient.EditorOptions{})
	require.NoError(t, err)

	editor.Edit(func(d *portalclient.FormDraft) {
		d.Items = append(d.Items, services.ItemInput{
			InsuranceType: "Legal Protection Insurance",
			Documents:     []services.DocumentInput{{Name: "scan.pdf", FileURL: "/uploads/1-scan.pdf"}},
		})
	})
	transport.onPut = func() {
		editor.Edit(func(d *portalclient.FormDraft) { d.Items[1].Package = "Premium" })
	}

	require.NoError(t, editor.Save(ctx))
	assert.True(t, editor.Dirty(), "the edit made during the save is still pending")

	saved := editor.Form()
	require.Len(t, saved.Items, 2)
	require.Len(t, saved.Items[1].Documents, 1)
	createdItem := saved.Items[1].ID
	createdDoc := saved.Items[1].Documents[0].ID

	draft := editor.Draft()
	assert.Equal(t, createdItem.String(), draft.Items[1].ID)
	assert.Equal(t, createdDoc.String(), draft.Items[1].Documents[0].ID)
	assert.Equal(t, "Premium", draft.Items[1].Package)

	require.NoError(t, editor.Save(ctx))
	assert.False(t, editor.Dirty())

	stored, err := client.GetForm(ctx, form.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, createdItem, stored.Items[1].ID)
	assert.Equal(t, "Premium", stored.Items[1].Package)
	require.Len(t, stored.Items[1].Documents, 1)
	assert.Equal(t, createdDoc, stored.Items[1].Documents[0].ID)
}

func TestEditorSession_Submit(t *testing.T) {
	baseURL := startPortal(t)
	ctx := context.Background()
	client := loggedIn(t, baseURL, clientLogin("John Doe"))

	form, err := client.CreateForm(ctx, services.CreateFormInput{ClientName: "John Doe"})
	require.NoError(t, err)
	editor, err := portalclient.OpenEditor(ctx, client, form.ID, portalclient.EditorOptions{})
	require.NoError(t, err)

	require.NoError(t, editor.Submit(ctx))
	assert.Equal(t, models.FormStatusSubmitted, editor.Form().Status)
}

func strPtr(s string) *string { return &s }
