package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/alrightylabs/lutranscript/apps/api/echo"
	"github.com/alrightylabs/lutranscript/core"
	"github.com/alrightylabs/lutranscript/core/dashboard"
	"github.com/alrightylabs/lutranscript/core/lms"
	"github.com/alrightylabs/lutranscript/services/learnupon"
	"github.com/alrightylabs/lutranscript/testutil"
)

const (
	apiUser     = "api-user"
	apiPassword = "s3cret"
)

type testEnv struct {
	server   *Server
	upstream *testutil.Upstream
	logger   *testutil.Logger
}

func fixture() testutil.Fixture {
	return testutil.Fixture{
		Username: apiUser,
		Password: apiPassword,
		Users: []lms.User{
			{ID: "42", Name: "Ada Lovelace", Email: "ada@acme.io"},
		},
		Groups: []lms.Group{
			{ID: "7", Name: "Sales EMEA", Description: "Regional sales", MemberCount: 2},
			{ID: "8", Name: "Support", MemberCount: 1, Status: "Inactive"},
		},
		Members: map[lms.ID][]lms.User{
			"7": {
				{ID: "42", Name: "Ada Lovelace", Email: "ada@acme.io"},
				{ID: "43", Email: "bob@acme.io"},
			},
		},
		Enrollments: map[lms.ID][]lms.Enrollment{
			"42": {
				{CourseID: "1", CourseName: "Promapp Fundamentals"},
				{CourseID: "2", CourseName: "Workflow Practitioner"},
			},
		},
		Completions: map[lms.ID][]lms.Completion{
			"42": {{CourseID: "2", CompletedAt: "2024-02-01T09:30:00Z", CertificateURL: "https://cert/2"}},
			"43": {{CourseID: "9", CourseName: "Forms Expert", CompletedAt: "2024-03-01"}},
		},
	}
}

func setup(t *testing.T) testEnv {
	up := testutil.NewUpstream(t, fixture())
	logger := testutil.NewLogger()

	staticDir := t.TempDir()
	err := os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<h1>LearnUpon Transcripts</h1>"), 0o644)
	if err != nil {
		t.Fatalf("writing static page: %v", err)
	}

	conf := &core.Config{Env: "test", TestMode: true, StaticDir: staticDir}
	conf.LearnUpon = core.LearnUponConfig{
		BaseURL:  up.URL,
		Username: apiUser,
		Password: apiPassword,
		Timeout:  5 * time.Second,
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	newSource := func(s dashboard.Settings) dashboard.Source {
		opts := learnupon.OptionsFromConfig(conf)
		opts.Mode = s.Mode
		opts.ProxyURL = s.ProxyURL
		return learnupon.NewClient(opts)
	}
	dash := dashboard.New(dashboard.Options{
		Settings:  dashboard.Settings{Mode: core.ModeDirect},
		NewSource: newSource,
		PageSize:  10,
		Logger:    logger,
		Validate:  validate,
	})

	server := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Dashboard:  dash,
		Upstream:   learnupon.NewClient(learnupon.OptionsFromConfig(conf)),
		Validate:   validate,
		Translator: translator,
	})
	t.Cleanup(func() { _ = server.Close() })
	return testEnv{server: server, upstream: up, logger: logger}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
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

func (env testEnv) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, data...)
	env.server.ServeHTTP(rec, req)
	return rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if !assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String()) {
		t.FailNow()
	}
}
