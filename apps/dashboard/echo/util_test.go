package echodash

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
	notifysvc "github.com/darasahq/darasa/services/notify"
	"github.com/darasahq/darasa/services/trainapi"
	inmemstore "github.com/darasahq/darasa/storage/sessionstore/inmem"
)

type testLogger struct{}

func (testLogger) Enable(bool)                        {}
func (testLogger) Debug(string, ...interface{})       {}
func (testLogger) Info(string, ...interface{})        {}
func (testLogger) Warn(string, ...interface{})        {}
func (testLogger) Error(string, ...interface{})       {}
func (testLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

// fakeRemote stands in for the training platform API.
type fakeRemote struct {
	mutex         sync.Mutex
	loginFail     bool
	force401      bool
	paymentStatus string
	paths         []string

	importedFilename string
	importedContent  string
}

func (f *fakeRemote) setForce401(v bool) {
	f.mutex.Lock()
	f.force401 = v
	f.mutex.Unlock()
}

func (f *fakeRemote) setPaymentStatus(status string) {
	f.mutex.Lock()
	f.paymentStatus = status
	f.mutex.Unlock()
}

func (f *fakeRemote) importedFile() (string, string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.importedFilename, f.importedContent
}

func (f *fakeRemote) requestedPaths() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string(nil), f.paths...)
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mutex.Lock()
	f.paths = append(f.paths, r.URL.Path)
	loginFail, force401 := f.loginFail, f.force401
	f.mutex.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasPrefix(r.URL.Path, "/auth/") && strings.HasSuffix(r.URL.Path, "/login"):
		if loginFail {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid credentials"})
			return
		}
		at := strings.Split(r.URL.Path, "/")[2]
		var data map[string]interface{}
		switch at {
		case "admin":
			data = map[string]interface{}{
				"admin": map[string]interface{}{"id": 1, "name": "Root", "email": "root@test.test"},
				"token": "tok-admin",
			}
		case "organization":
			data = map[string]interface{}{
				"user": map[string]interface{}{
					"id": 7, "name": "Boss", "email": "boss@acme.test", "is_admin": true,
				},
				"access_token":  "tok-org",
				"organizations": []map[string]interface{}{{"id": 1, "name": "Acme"}},
			}
		default:
			data = map[string]interface{}{
				"user":         map[string]interface{}{"id": 3, "name": "Amina", "email": "amina@test.test"},
				"access_token": "tok-user",
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "success", "data": data})

	case strings.HasSuffix(r.URL.Path, "/logout"):
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "success"})

	default:
		if force401 {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
			return
		}
		f.serveData(w, r)
	}
}

// serveData answers the data endpoints with minimal valid payloads, echoing
// submitted fields back the way the live API does.
func (f *fakeRemote) serveData(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	reply := func(data interface{}) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	}
	var body map[string]interface{}
	if r.Method == http.MethodPost && strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/members/import"):
		file, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "file is required"})
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		f.mutex.Lock()
		f.importedFilename = hdr.Filename
		f.importedContent = string(content)
		f.mutex.Unlock()
		reply(map[string]interface{}{"imported": 2, "skipped": 1, "errors": []string{"row 4: invalid email"}})

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/members"):
		reply(map[string]interface{}{"id": 12, "name": body["name"], "email": body["email"], "role": "member"})

	case r.Method == http.MethodPost && path == "/enrollments":
		reply(map[string]interface{}{"id": 55, "cohort_id": body["cohort_id"], "status": "pending"})

	case r.Method == http.MethodPost && path == "/cohorts":
		reply(map[string]interface{}{"id": 9, "training_id": body["training_id"], "name": body["name"]})

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/cohorts/"):
		reply(map[string]interface{}{"id": 9, "training_id": 1, "name": "Intake 4"})

	case r.Method == http.MethodPost && path == "/trainings":
		reply(map[string]interface{}{"id": 4, "title": body["title"], "published": false})

	case r.Method == http.MethodPost && path == "/payments":
		reply(map[string]interface{}{
			"reference":    "pay-123",
			"redirect_url": "https://provider.test/checkout/pay-123",
		})

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/payments/"):
		f.mutex.Lock()
		status := f.paymentStatus
		f.mutex.Unlock()
		if status == "" {
			status = "pending"
		}
		reply(map[string]interface{}{
			"reference": strings.TrimPrefix(path, "/payments/"),
			"status":    status,
			"message":   "card declined",
		})

	default:
		reply([]interface{}{})
	}
}

func testConf(apiBaseURL string) *core.Config {
	conf := &core.Config{
		TestMode:  true,
		Env:       "TEST",
		AppName:   "Darasa",
		SecretKey: "test-secret-key",
	}
	conf.Server.SessionCookie = "darasa_session"
	conf.Server.SessionTTL = time.Hour
	conf.API.BaseURL = apiBaseURL
	conf.API.Timeout = 5 * time.Second
	return conf
}

func setup(t *testing.T) (Server, *fakeRemote, *inmemstore.Store, *core.Config) {
	t.Helper()

	remote := &fakeRemote{}
	remoteSrv := httptest.NewServer(remote)
	t.Cleanup(remoteSrv.Close)

	conf := testConf(remoteSrv.URL)
	logger := &testLogger{}
	storage := inmemstore.Open()
	notifier := notifysvc.NewFlashNotifier(storage, logger)

	api := trainapi.NewClient(conf, notifier, logger)
	api.OnUnauthenticated(func(ctx context.Context) {
		if store, ok := session.StoreFromContext(ctx); ok {
			store.ForceClear(ctx)
		}
	})

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)

	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Storage:        storage,
		API:            api,
		Notifier:       notifier,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return app, remote, storage, conf
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	cookie   *http.Cookie
	wantCode int
	wantData []byte
	extra    interface{}
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func newSessionRequest(method, path string, cookie *http.Cookie, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	req, rec := newRequest(method, path, data...)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req, rec
}

// loginAs authenticates against the fake remote through the given login
// surface and returns the issued session cookie.
func loginAs(t *testing.T, app Server, conf *core.Config, loginPath, email string) *http.Cookie {
	t.Helper()
	req, rec := newRequest(http.MethodPost, loginPath, marchallObj(t, LoginRequest{Field: email, Password: "pw"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %v %v", rec.Code, rec.Body.String())
	}
	return sessionCookieFrom(t, conf, rec)
}

// sessionCookieFrom extracts the issued session cookie from a response.
func sessionCookieFrom(t *testing.T, conf *core.Config, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == conf.Server.SessionCookie {
			return c
		}
	}
	t.Fatal("session cookie not set on response")
	return nil
}

// makeSessionCookie signs a cookie for a known session ID, bypassing the login
// flow so tests can seed storage directly.
func makeSessionCookie(t *testing.T, conf *core.Config, sid string) *http.Cookie {
	t.Helper()
	now := time.Now()
	claims := &sessionClaims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(conf.Server.SessionTTL).Unix(),
		},
		SID: sid,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(conf.SecretKey))
	if err != nil {
		t.Fatalf("makeSessionCookie(): %v", err)
	}
	return &http.Cookie{Name: conf.Server.SessionCookie, Value: signed}
}

// sidFromCookie extracts the opaque session ID from a signed session cookie.
func sidFromCookie(t *testing.T, conf *core.Config, cookie *http.Cookie) string {
	t.Helper()
	claims := new(sessionClaims)
	_, err := jwt.ParseWithClaims(cookie.Value, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(conf.SecretKey), nil
	})
	if err != nil || claims.SID == "" {
		t.Fatalf("sidFromCookie(): %v", err)
	}
	return claims.SID
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func decodeSessionView(t *testing.T, rec *httptest.ResponseRecorder) SessionView {
	t.Helper()
	var view SessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decoding SessionView: %v", err)
	}
	return view
}
