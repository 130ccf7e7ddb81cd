package apiserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	api "github.com/kubev2v/fold-planner/api/v1alpha1"
	apiserver "github.com/kubev2v/fold-planner/internal/api_server"
	"github.com/kubev2v/fold-planner/internal/auth"
	"github.com/kubev2v/fold-planner/internal/config"
	"github.com/kubev2v/fold-planner/internal/predictor"
	"github.com/kubev2v/fold-planner/internal/service"
	"github.com/kubev2v/fold-planner/internal/storage"
	"github.com/kubev2v/fold-planner/internal/store"
	"github.com/kubev2v/fold-planner/pkg/migrations"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
)

type acceptingPredictor struct{}

func (acceptingPredictor) Submit(_ context.Context, _ predictor.Request) error { return nil }

func (acceptingPredictor) Progress(_ context.Context, _ string) (*predictor.Progress, error) {
	return nil, predictor.ErrJobUnknown
}

var _ = Describe("api server", func() {
	var (
		s   store.Store
		cfg *config.Config
		ts  *httptest.Server
	)

	BeforeEach(func() {
		var err error
		cfg, err = config.Load()
		Expect(err).To(BeNil())
		cfg.Database.Type = store.DatabaseTypeSqlite
		cfg.Database.Name = filepath.Join(GinkgoT().TempDir(), "api.db")
		cfg.Service.Auth = config.Auth{AuthenticationType: auth.LocalAuthentication, Secret: "s3cret"}

		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())
		Expect(migrations.MigrateStore(db, store.DatabaseTypeSqlite, "")).To(Succeed())
		s = store.NewStore(db)

		jobSrv := service.NewJobService(s, storage.NewMemoryAdapter("mem://results"), acceptingPredictor{})
		router, err := apiserver.NewRouter(cfg, jobSrv, prometheus.NewRegistry())
		Expect(err).To(BeNil())
		ts = httptest.NewServer(router)
	})

	AfterEach(func() {
		ts.Close()
		s.Close()
	})

	do := func(req *http.Request, v any) int {
		resp, err := http.DefaultClient.Do(req)
		Expect(err).To(BeNil())
		defer resp.Body.Close()
		if v != nil {
			Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
		}
		return resp.StatusCode
	}

	post := func(path, body string) *http.Request {
		req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(body))
		Expect(err).To(BeNil())
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	get := func(path string) *http.Request {
		req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
		Expect(err).To(BeNil())
		return req
	}

	It("submits a sequence", func() {
		var resp api.SubmitSequenceResponse
		code := do(post("/api/submit-sequence", `{"sequence":">sp|P24941|CDK2_HUMAN\nMENFQKVEKIGEGTYG\nVVYKARNKLTGEVVALKKIRL"}`), &resp)
		Expect(code).To(Equal(http.StatusOK))
		Expect(uuid.Validate(resp.JobId)).To(Succeed())
		Expect(resp.StorageUrl).NotTo(BeEmpty())

		var status api.JobStatusResponse
		Expect(do(get("/api/job-status/"+resp.JobId), &status)).To(Equal(http.StatusOK))
		Expect(status.Name).To(Equal("sp|P24941|CDK2_HUMAN"))
		Expect(status.Progress).To(BeNil())
	})

	It("explains why a sequence is rejected", func() {
		var e api.Error
		Expect(do(post("/api/submit-sequence", `{"sequence":"SHORT"}`), &e)).To(Equal(http.StatusBadRequest))
		Expect(e.Error).To(ContainSubstring("too short"))
	})

	It("rejects a body that does not match the schema", func() {
		var e api.Error
		Expect(do(post("/api/submit-sequence", `{"sequence":42}`), &e)).To(Equal(http.StatusBadRequest))
		Expect(e.Error).NotTo(BeEmpty())
	})

	It("answers 404 for an unknown job", func() {
		var e api.Error
		Expect(do(get("/api/job-status/"+uuid.NewString()), &e)).To(Equal(http.StatusNotFound))
		Expect(e.Error).To(Equal("Job not found"))
	})

	It("answers 404 for an unknown job id of any length", func() {
		id := strings.Repeat("x", 128)
		for _, path := range []string{"/api/job-status/", "/api/check-result/"} {
			var e api.Error
			Expect(do(get(path+id), &e)).To(Equal(http.StatusNotFound))
			Expect(e.Error).To(Equal("Job not found"))
		}
	})

	It("protects the admin routes", func() {
		Expect(do(get("/api/admin/jobs"), nil)).To(Equal(http.StatusUnauthorized))

		token, err := auth.GenerateLocalToken("s3cret", "operator", time.Minute)
		Expect(err).To(BeNil())
		req := get("/api/admin/jobs")
		req.Header.Set("Authorization", "Bearer "+token)

		var jobs api.AdminJobsResponse
		Expect(do(req, &jobs)).To(Equal(http.StatusOK))
		Expect(jobs.Queued).To(BeEmpty())
		Expect(jobs.Processed).To(BeEmpty())
	})

	It("keeps the public routes open", func() {
		var health api.HealthResponse
		Expect(do(get("/health"), &health)).To(Equal(http.StatusOK))
		Expect(health.Status).To(Equal("healthy"))
	})

	It("echoes the request id", func() {
		resp, err := http.DefaultClient.Do(get("/health"))
		Expect(err).To(BeNil())
		defer resp.Body.Close()
		Expect(resp.Header.Get("X-Request-Id")).NotTo(BeEmpty())
	})
})
