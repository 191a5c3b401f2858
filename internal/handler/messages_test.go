package handler

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/lsst-ts/narrativelog/internal/filter"
	"github.com/lsst-ts/narrativelog/internal/repository"
)

type fakeRepo struct {
	records map[uuid.UUID]*repository.MessageRecord

	lastAdd  *repository.AddMessageParams
	lastEdit *repository.EditMessageParams
	lastFind *filter.Compiled
	findOut  []repository.MessageRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: map[uuid.UUID]*repository.MessageRecord{}}
}

func (f *fakeRepo) AddMessage(_ context.Context, params repository.AddMessageParams) (*repository.MessageRecord, error) {
	f.lastAdd = &params
	rec := &repository.MessageRecord{
		ID:          uuid.New(),
		SiteID:      "test",
		MessageText: params.MessageText,
		Level:       params.Level,
		Tags:        datatypes.NewJSONSlice(params.Tags),
		Urls:        datatypes.NewJSONSlice(params.Urls),
		TimeLost:    params.TimeLost,
		DateBegin:   params.DateBegin,
		DateEnd:     params.DateEnd,
		UserID:      params.UserID,
		UserAgent:   params.UserAgent,
		IsHuman:     params.IsHuman,
		DateAdded:   time.Now().UTC(),
	}
	f.records[rec.ID] = rec
	return rec, nil
}

func (f *fakeRepo) GetMessage(_ context.Context, id uuid.UUID) (*repository.MessageRecord, error) {
	return f.records[id], nil
}

func (f *fakeRepo) EditMessage(_ context.Context, id uuid.UUID, params repository.EditMessageParams) (*repository.MessageRecord, error) {
	f.lastEdit = &params
	parent, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	child := *parent
	child.ID = uuid.New()
	parentID := parent.ID
	child.ParentID = &parentID
	if params.MessageText != nil {
		child.MessageText = *params.MessageText
	}
	f.records[child.ID] = &child
	return &child, nil
}

func (f *fakeRepo) DeleteMessage(_ context.Context, id uuid.UUID) (int64, error) {
	rec, ok := f.records[id]
	if !ok {
		return 0, nil
	}
	if rec.DateInvalidated == nil {
		now := time.Now().UTC()
		rec.DateInvalidated = &now
	}
	return 1, nil
}

func (f *fakeRepo) FindMessages(_ context.Context, compiled *filter.Compiled) ([]repository.MessageRecord, error) {
	f.lastFind = compiled
	return f.findOut, nil
}

func (f *fakeRepo) MessageStats(_ context.Context, _ time.Time) (repository.Stats, error) {
	return repository.Stats{}, nil
}

func newTestRouter(repo repository.Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := &MessagesHandler{Repo: repo}
	h.Register(r)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const validAddBody = `{
	"message_text": "dome stuck",
	"level": 40,
	"user_id": "operator",
	"user_agent": "LOVE",
	"is_human": true,
	"tags": ["Dome", "azimuth_drive"]
}`

func TestAddMessage(t *testing.T) {
	repo := newFakeRepo()
	r := newTestRouter(repo)

	w := doRequest(t, r, http.MethodPost, "/narrativelog/messages", validAddBody)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["is_valid"] != true {
		t.Fatalf("is_valid = %v, want true", resp["is_valid"])
	}
	if repo.lastAdd == nil {
		t.Fatal("repository AddMessage not called")
	}
	wantTags := []string{"dome", "azimuth_drive"}
	if len(repo.lastAdd.Tags) != 2 || repo.lastAdd.Tags[0] != wantTags[0] || repo.lastAdd.Tags[1] != wantTags[1] {
		t.Fatalf("tags = %v, want %v", repo.lastAdd.Tags, wantTags)
	}
}

func TestAddMessageMissingRequiredFields(t *testing.T) {
	r := newTestRouter(newFakeRepo())

	w := doRequest(t, r, http.MethodPost, "/narrativelog/messages", `{"level": 20}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	for _, field := range []string{"message_text", "user_id", "user_agent", "is_human"} {
		if !strings.Contains(body, field) {
			t.Fatalf("detail does not name missing field %q: %s", field, body)
		}
	}
	if strings.Contains(body, `"level"`) {
		t.Fatalf("detail names supplied field level: %s", body)
	}
}

func TestAddMessageBadTags(t *testing.T) {
	r := newTestRouter(newFakeRepo())

	body := `{"message_text": "x", "level": 20, "user_id": "u", "user_agent": "a",
		"is_human": false, "tags": ["bad tag", "ok_tag"]}`
	w := doRequest(t, r, http.MethodPost, "/narrativelog/messages", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "bad tag") {
		t.Fatalf("detail does not name the bad tag: %s", w.Body.String())
	}
}

func TestAddMessageRejectsTimezoneSuffix(t *testing.T) {
	r := newTestRouter(newFakeRepo())

	for _, date := range []string{"2026-08-30T12:00:00Z", "2026-08-30T12:00:00+01:00"} {
		body := `{"message_text": "x", "level": 20, "user_id": "u", "user_agent": "a",
			"is_human": false, "date_begin": "` + date + `"}`
		w := doRequest(t, r, http.MethodPost, "/narrativelog/messages", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("date %q: status = %d, body = %s", date, w.Code, w.Body.String())
		}
	}
}

func TestEditMessage(t *testing.T) {
	repo := newFakeRepo()
	r := newTestRouter(repo)

	w := doRequest(t, r, http.MethodPost, "/narrativelog/messages", validAddBody)
	var created map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal created: %v", err)
	}
	id := created["id"].(string)

	w = doRequest(t, r, http.MethodPatch, "/narrativelog/messages/"+id,
		`{"message_text": "dome stuck, now freed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var child map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &child); err != nil {
		t.Fatalf("unmarshal child: %v", err)
	}
	if child["parent_id"] != id {
		t.Fatalf("parent_id = %v, want %s", child["parent_id"], id)
	}
	if child["message_text"] != "dome stuck, now freed" {
		t.Fatalf("message_text = %v", child["message_text"])
	}
	// Unspecified fields must not be sent to the repository as changes.
	if repo.lastEdit.Level != nil || repo.lastEdit.Tags != nil {
		t.Fatalf("edit params carry unspecified fields: %+v", repo.lastEdit)
	}
}

func TestEditMessageNotFound(t *testing.T) {
	r := newTestRouter(newFakeRepo())

	w := doRequest(t, r, http.MethodPatch,
		"/narrativelog/messages/"+uuid.NewString(), `{"level": 30}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestEditMessageInvalidUUID(t *testing.T) {
	r := newTestRouter(newFakeRepo())

	w := doRequest(t, r, http.MethodPatch, "/narrativelog/messages/not-a-uuid", `{}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestDeleteMessage(t *testing.T) {
	repo := newFakeRepo()
	r := newTestRouter(repo)

	w := doRequest(t, r, http.MethodPost, "/narrativelog/messages", validAddBody)
	var created map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal created: %v", err)
	}
	id := created["id"].(string)

	w = doRequest(t, r, http.MethodDelete, "/narrativelog/messages/"+id, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	// Repeat delete is a no-op with the same status.
	w = doRequest(t, r, http.MethodDelete, "/narrativelog/messages/"+id, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("repeat delete status = %d", w.Code)
	}

	w = doRequest(t, r, http.MethodDelete, "/narrativelog/messages/"+uuid.NewString(), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d", w.Code)
	}
}

func TestGetMessageNotFound(t *testing.T) {
	r := newTestRouter(newFakeRepo())

	w := doRequest(t, r, http.MethodGet, "/narrativelog/messages/"+uuid.NewString(), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestFindMessagesDefaults(t *testing.T) {
	repo := newFakeRepo()
	r := newTestRouter(repo)

	w := doRequest(t, r, http.MethodGet, "/narrativelog/messages", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	// The response is a bare JSON array, no envelope.
	if body := strings.TrimSpace(w.Body.String()); !strings.HasPrefix(body, "[") {
		t.Fatalf("expected bare array response, got %s", body)
	}
	if repo.lastFind.Limit != filter.DefaultLimit {
		t.Fatalf("limit = %d, want %d", repo.lastFind.Limit, filter.DefaultLimit)
	}
	if len(repo.lastFind.Order) != 1 || repo.lastFind.Order[0] != "messages.id ASC" {
		t.Fatalf("order = %v", repo.lastFind.Order)
	}
}

func TestFindMessagesPaginationValidation(t *testing.T) {
	r := newTestRouter(newFakeRepo())

	for _, target := range []string{
		"/narrativelog/messages?limit=1",
		"/narrativelog/messages?limit=0",
		"/narrativelog/messages?offset=-1",
		"/narrativelog/messages?limit=abc",
	} {
		w := doRequest(t, r, http.MethodGet, target, "")
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: status = %d, body = %s", target, w.Code, w.Body.String())
		}
	}

	repo := newFakeRepo()
	r = newTestRouter(repo)
	w := doRequest(t, r, http.MethodGet, "/narrativelog/messages?limit=1000", "")
	if w.Code != http.StatusOK {
		t.Fatalf("limit=1000: status = %d", w.Code)
	}
	if repo.lastFind.Limit != 1000 {
		t.Fatalf("limit = %d, want 1000", repo.lastFind.Limit)
	}
}

func TestFindMessagesBadOrderBy(t *testing.T) {
	r := newTestRouter(newFakeRepo())

	w := doRequest(t, r, http.MethodGet, "/narrativelog/messages?order_by=no_such_field", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "no_such_field") {
		t.Fatalf("detail does not name the bad field: %s", w.Body.String())
	}
}

func TestFindMessagesBadComponentsPath(t *testing.T) {
	r := newTestRouter(newFakeRepo())

	w := doRequest(t, r, http.MethodGet,
		"/narrativelog/messages?components_path="+`%7Bnot-json`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestFindMessagesBadFilterTags(t *testing.T) {
	r := newTestRouter(newFakeRepo())

	w := doRequest(t, r, http.MethodGet, "/narrativelog/messages?tags=bad%20tag", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestFindMessagesFilterWiring(t *testing.T) {
	repo := newFakeRepo()
	r := newTestRouter(repo)

	target := "/narrativelog/messages?min_level=20&user_ids=a&user_ids=b" +
		"&message_text=dome&tags=Alpha&is_valid=either&has_date_end=true"
	w := doRequest(t, r, http.MethodGet, target, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var sqls []string
	for _, cond := range repo.lastFind.Conds {
		sqls = append(sqls, cond.SQL)
	}
	joined := strings.Join(sqls, "; ")
	for _, want := range []string{
		"messages.level >= ?",
		"messages.user_id IN ?",
		"POSITION(? IN messages.message_text) > 0",
		"jsonb_exists_any(messages.tags, ?::text[])",
		"messages.date_end IS NOT NULL",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing condition %q in %s", want, joined)
		}
	}
	// is_valid=either suppresses the default validity condition.
	if strings.Contains(joined, "date_invalidated IS NULL") {
		t.Fatalf("validity condition present despite is_valid=either: %s", joined)
	}
	// Tag filter values are normalized.
	found := false
	for _, cond := range repo.lastFind.Conds {
		for _, v := range cond.Vars {
			valuer, ok := v.(driver.Valuer)
			if !ok {
				continue
			}
			if raw, err := valuer.Value(); err == nil {
				if s, ok := raw.(string); ok && strings.Contains(s, "alpha") {
					found = true
				}
			}
		}
	}
	if !found {
		t.Fatalf("normalized tag value not found in conditions: %+v", repo.lastFind.Conds)
	}
}
