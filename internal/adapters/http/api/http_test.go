package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/housecup/internal/adapters/blob"
	"github.com/okian/housecup/internal/adapters/http/api"
	"github.com/okian/housecup/internal/adapters/store"
	service "github.com/okian/housecup/internal/app"
	"github.com/okian/housecup/internal/domain/model"
	"github.com/okian/housecup/internal/domain/types"
	"github.com/okian/housecup/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies records calls and returns scripted results.
type mockDependencies struct {
	mu sync.Mutex

	snapshot types.Snapshot
	watch    chan types.Snapshot

	submission types.Submission
	err        error

	lastKey    string
	lastDraft  model.EventDraft
	lastID     string
	lastPatch  model.EventPatch
	lastURL    string
	lastUpload struct {
		fileName    string
		contentType string
		body        string
	}
}

func (m *mockDependencies) Snapshot() types.Snapshot { return m.snapshot.Clone() }

func (m *mockDependencies) Watch(ctx context.Context) <-chan types.Snapshot { return m.watch }

func (m *mockDependencies) AddEvent(_ context.Context, key string, d model.EventDraft) (types.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastKey, m.lastDraft = key, d
	return m.submission, m.err
}

func (m *mockDependencies) UpdateEvent(_ context.Context, id string, p model.EventPatch) error {
	m.lastID, m.lastPatch = id, p
	return m.err
}

func (m *mockDependencies) DeleteEvent(_ context.Context, id string) error {
	m.lastID = id
	return m.err
}

func (m *mockDependencies) Repair(context.Context) (int, error) { return 2, m.err }

func (m *mockDependencies) AddEventTemplate(_ context.Context, t model.EventTemplate) (string, error) {
	return "tpl-1", m.err
}

func (m *mockDependencies) UpdateEventTemplate(_ context.Context, id string, _ model.TemplatePatch) error {
	m.lastID = id
	return m.err
}

func (m *mockDependencies) DeleteEventTemplate(_ context.Context, id string) error {
	m.lastID = id
	return m.err
}

func (m *mockDependencies) AddHouse(_ context.Context, name string, _ model.Color) (string, error) {
	return "house-" + name, m.err
}

func (m *mockDependencies) UpdateHouse(_ context.Context, id, _ string, _ model.Color) error {
	m.lastID = id
	return m.err
}

func (m *mockDependencies) AddWinner(_ context.Context, w model.Winner) (string, error) {
	return "winner-1", m.err
}

func (m *mockDependencies) AddWinnerPhoto(_ context.Context, id, url string) error {
	m.lastID, m.lastURL = id, url
	return m.err
}

func (m *mockDependencies) UploadWinnerPhoto(_ context.Context, id, fileName, contentType string, body io.Reader) (string, error) {
	data, _ := io.ReadAll(body)
	m.lastID = id
	m.lastUpload.fileName, m.lastUpload.contentType, m.lastUpload.body = fileName, contentType, string(data)
	if m.err != nil {
		return "", m.err
	}
	return "/blobs/winners/" + id + "/photo.png", nil
}

func (m *mockDependencies) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

type mockDiagnoser struct {
	diag types.Diagnostics
}

func (m mockDiagnoser) Diagnose(context.Context) types.Diagnostics { return m.diag }

func newDeps() *mockDependencies {
	return &mockDependencies{
		snapshot: types.Snapshot{
			Houses: []model.House{
				{ID: "h1", Name: "Tagore", Score: 10, Rank: 1, Color: model.ColorTagore},
				{ID: "h2", Name: "Gandhi", Score: 0, Rank: 2, Color: model.ColorGandhi},
			},
		},
		watch: make(chan types.Snapshot, 1),
	}
}

func newMux(deps *mockDependencies, opts ...api.Option) *http.ServeMux {
	opts = append([]api.Option{api.WithLogger(logger.Nop())}, opts...)
	mux := http.NewServeMux()
	api.NewServer(deps, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

const validEvent = `{"name":"Chess","category":"Junior","type":"Individual","house":"Tagore","position":1,"date":"2024-01-15"}`

func TestServer_Views(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newDeps()
		mux := newMux(deps)

		Convey("When requesting health", func() {
			w := do(mux, http.MethodGet, "/healthz", "")

			Convey("Then it should report ok", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			})
		})

		Convey("When requesting the snapshot", func() {
			w := do(mux, http.MethodGet, "/snapshot", "")

			Convey("Then every collection should be present", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var snap types.Snapshot
				So(json.Unmarshal(w.Body.Bytes(), &snap), ShouldBeNil)
				So(snap.Houses, ShouldHaveLength, 2)
				So(w.Body.String(), ShouldContainSubstring, `"eventTemplates":[]`)
			})
		})

		Convey("When requesting houses", func() {
			w := do(mux, http.MethodGet, "/houses", "")

			Convey("Then houses should be returned in rank order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var houses []model.House
				So(json.Unmarshal(w.Body.Bytes(), &houses), ShouldBeNil)
				So(houses[0].Name, ShouldEqual, "Tagore")
			})
		})

		Convey("When requesting stats and metrics", func() {
			Convey("Then both should be served", func() {
				So(do(mux, http.MethodGet, "/stats", "").Code, ShouldEqual, http.StatusOK)
				So(do(mux, http.MethodGet, "/metrics", "").Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When diagnostics are not wired", func() {
			w := do(mux, http.MethodGet, "/diagnostics", "")

			Convey("Then it should be not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})

	Convey("Given diagnostics for an unreachable store", t, func() {
		mux := newMux(newDeps(), api.WithDiagnoser(mockDiagnoser{diag: types.Diagnostics{Backend: "redis", Error: "dial tcp"}}))

		Convey("Then diagnostics should answer 503", func() {
			w := do(mux, http.MethodGet, "/diagnostics", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(w.Body.String(), ShouldContainSubstring, "dial tcp")
		})
	})
}

func TestServer_Events(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newDeps()
		mux := newMux(deps)

		Convey("When posting a valid event with an idempotency key", func() {
			deps.submission = types.Submission{EventID: "e1", Points: 10, Matched: true}
			w := do(mux, http.MethodPost, "/events", validEvent, api.IdempotencyHeader, "sports-day-1")

			Convey("Then it should be created with its points", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(w.Body.String(), ShouldContainSubstring, `"points":10`)
				So(deps.lastKey, ShouldEqual, "sports-day-1")
				So(deps.lastDraft.House, ShouldEqual, "Tagore")
				So(deps.lastDraft.Type, ShouldEqual, model.Individual)
			})
		})

		Convey("When the submission is a duplicate", func() {
			deps.submission = types.Submission{Duplicate: true}
			w := do(mux, http.MethodPost, "/events", validEvent, api.IdempotencyHeader, "k")

			Convey("Then it should be acknowledged with 200", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/events", "{")

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "bad_request")
			})
		})

		Convey("When the body has unknown fields", func() {
			w := do(mux, http.MethodPost, "/events", `{"team":"Tagore"}`)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the service reports errors", func() {
			cases := []struct {
				err    error
				status int
				code   string
			}{
				{model.ErrInvalid, http.StatusBadRequest, "bad_request"},
				{service.ErrBusy, http.StatusTooManyRequests, "backpressure"},
				{store.ErrNotConfigured, http.StatusServiceUnavailable, "not_configured"},
				{service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
				{errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
			}

			Convey("Then each should map to its status", func() {
				for _, c := range cases {
					deps.err = c.err
					w := do(mux, http.MethodPost, "/events", validEvent)
					So(w.Code, ShouldEqual, c.status)
					So(errorCode(w), ShouldEqual, c.code)
				}
			})
		})

		Convey("When patching an event", func() {
			w := do(mux, http.MethodPatch, "/events/e1", `{"name":"Long jump"}`)

			Convey("Then the patch should reach the service", func() {
				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(deps.lastID, ShouldEqual, "e1")
				So(*deps.lastPatch.Name, ShouldEqual, "Long jump")
			})
		})

		Convey("When a patch tries to set an event's points", func() {
			w := do(mux, http.MethodPatch, "/events/e1", `{"points":999}`)

			Convey("Then it should be rejected before reaching the service", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.lastID, ShouldEqual, "")
			})
		})

		Convey("When deleting an unknown event", func() {
			deps.err = store.ErrNotFound
			w := do(mux, http.MethodDelete, "/events/missing", "")

			Convey("Then it should be not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(deps.lastID, ShouldEqual, "missing")
			})
		})

		Convey("When requesting a rank repair", func() {
			w := do(mux, http.MethodPost, "/repair", "")

			Convey("Then the moved count should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"moved":2`)
			})
		})

		Convey("When using an unsupported method", func() {
			w := do(mux, http.MethodGet, "/events", "")

			Convey("Then it should not be allowed", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestServer_Catalog(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newDeps()
		mux := newMux(deps)

		Convey("When managing templates", func() {
			Convey("Then create, patch and delete should succeed", func() {
				w := do(mux, http.MethodPost, "/templates", `{"name":"Relay","category":"All","type":"Group"}`)
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(w.Body.String(), ShouldContainSubstring, `"id":"tpl-1"`)

				So(do(mux, http.MethodPatch, "/templates/tpl-1", `{"venue":"Track"}`).Code, ShouldEqual, http.StatusNoContent)
				So(do(mux, http.MethodDelete, "/templates/tpl-1", "").Code, ShouldEqual, http.StatusNoContent)
				So(deps.lastID, ShouldEqual, "tpl-1")
			})
		})

		Convey("When adding and renaming a house", func() {
			Convey("Then both should succeed", func() {
				w := do(mux, http.MethodPost, "/houses", `{"name":"Raman"}`)
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(w.Body.String(), ShouldContainSubstring, "house-Raman")

				So(do(mux, http.MethodPatch, "/houses/h1", `{"name":"Tagore House","color":"tagore"}`).Code, ShouldEqual, http.StatusNoContent)
				So(deps.lastID, ShouldEqual, "h1")
			})
		})

		Convey("When adding a winner and setting a photo url", func() {
			Convey("Then both should succeed", func() {
				w := do(mux, http.MethodPost, "/winners", `{"name":"Asha","event":"Chess","house":"Tagore","position":1}`)
				So(w.Code, ShouldEqual, http.StatusCreated)

				w = do(mux, http.MethodPut, "/winners/winner-1/photo", `{"url":"https://cdn.example.com/a.jpg"}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastURL, ShouldEqual, "https://cdn.example.com/a.jpg")
			})
		})
	})
}

func multipartBody(field, fileName, contentType, content string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+fileName+`"`)
	h.Set("Content-Type", contentType)
	part, _ := mw.CreatePart(h)
	_, _ = part.Write([]byte(content))
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestServer_PhotoUpload(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newDeps()
		mux := newMux(deps, api.WithMaxUploadBytes(1024))

		Convey("When uploading a photo", func() {
			body, ct := multipartBody("file", "podium.png", "image/png", "png-bytes")
			req := httptest.NewRequest(http.MethodPost, "/winners/w1/photo", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the file should reach the service and the url be returned", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(w.Body.String(), ShouldContainSubstring, "/blobs/winners/w1/photo.png")
				So(deps.lastID, ShouldEqual, "w1")
				So(deps.lastUpload.fileName, ShouldEqual, "podium.png")
				So(deps.lastUpload.contentType, ShouldEqual, "image/png")
				So(deps.lastUpload.body, ShouldEqual, "png-bytes")
			})
		})

		Convey("When the file field is missing", func() {
			body, ct := multipartBody("image", "podium.png", "image/png", "png-bytes")
			req := httptest.NewRequest(http.MethodPost, "/winners/w1/photo", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When photo storage is not configured", func() {
			deps.err = blob.ErrNotConfigured
			body, ct := multipartBody("file", "podium.png", "image/png", "png-bytes")
			req := httptest.NewRequest(http.MethodPost, "/winners/w1/photo", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should be unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})

	Convey("Given in-memory blobs are served", t, func() {
		blobs := blob.NewMemory("")
		_, err := blobs.Put(context.Background(), "winners/w1/photo.png", "image/png", strings.NewReader("png"))
		So(err, ShouldBeNil)
		mux := newMux(newDeps(), api.WithBlobs(blobs))

		Convey("Then stored objects should be downloadable", func() {
			w := do(mux, http.MethodGet, "/blobs/winners/w1/photo.png", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "image/png")
			So(w.Body.String(), ShouldEqual, "png")

			So(do(mux, http.MethodGet, "/blobs/winners/w1/missing.png", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_Stream(t *testing.T) {
	Convey("Given a server streaming snapshots", t, func() {
		deps := newDeps()
		deps.watch <- deps.snapshot
		srv := httptest.NewServer(newMux(deps, api.WithHeartbeat(time.Hour)))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", http.NoBody)
		So(err, ShouldBeNil)

		Convey("When a viewer connects", func() {
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the current snapshot should arrive as an event", func() {
				So(resp.Header.Get("Content-Type"), ShouldEqual, "text/event-stream")

				var event, data string
				scanner := bufio.NewScanner(resp.Body)
				for scanner.Scan() {
					line := scanner.Text()
					if strings.HasPrefix(line, "event: ") {
						event = strings.TrimPrefix(line, "event: ")
					}
					if strings.HasPrefix(line, "data: ") {
						data = strings.TrimPrefix(line, "data: ")
						break
					}
				}
				So(event, ShouldEqual, "snapshot")
				var snap types.Snapshot
				So(json.Unmarshal([]byte(data), &snap), ShouldBeNil)
				So(snap.Houses, ShouldHaveLength, 2)
				So(snap.Houses[0].Score, ShouldEqual, 10)
			})
		})
	})
}
