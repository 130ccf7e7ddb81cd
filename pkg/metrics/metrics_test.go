package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kubev2v/fold-planner/internal/config"
	"github.com/kubev2v/fold-planner/internal/store"
	"github.com/kubev2v/fold-planner/internal/store/model"
	"github.com/kubev2v/fold-planner/pkg/metrics"
	"github.com/kubev2v/fold-planner/pkg/migrations"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ = Describe("metrics", func() {
	Context("middleware", func() {
		It("counts requests by route pattern", func() {
			m, err := metrics.NewMiddleware("test")
			Expect(err).To(BeNil())
			reg := prometheus.NewRegistry()
			Expect(m.Register(reg)).To(Succeed())

			router := chi.NewRouter()
			router.Use(m.Handler)
			router.Get("/api/job-status/{jobId}", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			})

			for _, id := range []string{"a", "b", "c"} {
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/job-status/"+id, nil))
				Expect(rec.Code).To(Equal(http.StatusNotFound))
			}

			expected := `
# HELP fold_planner_http_requests_total Number of HTTP requests partitioned by status code, method and route.
# TYPE fold_planner_http_requests_total counter
fold_planner_http_requests_total{code="404",method="GET",path="/api/job-status/{jobId}",service="test"} 3
`
			Expect(testutil.GatherAndCompare(reg, strings.NewReader(expected), "fold_planner_http_requests_total")).To(Succeed())
		})

		It("rejects malformed buckets", func() {
			GinkgoT().Setenv(metrics.EnvLatencyBuckets, "10,abc")
			_, err := metrics.NewMiddleware("test")
			Expect(err).NotTo(BeNil())
		})
	})

	Context("unique submitters", func() {
		It("counts each client once until reset", func() {
			metrics.UniqueSubmittersPerWeek.Reset()
			metrics.UniqueSubmittersPerWeek.Add("10.0.0.1")
			metrics.UniqueSubmittersPerWeek.Add("10.0.0.1")
			metrics.UniqueSubmittersPerWeek.Add("10.0.0.2")
			Expect(metrics.UniqueSubmittersPerWeek.Count()).To(Equal(2))

			metrics.UniqueSubmittersPerWeek.Reset()
			Expect(metrics.UniqueSubmittersPerWeek.Count()).To(Equal(0))
		})
	})

	Context("job collector", func() {
		It("reports jobs per status", func() {
			cfg, err := config.Load()
			Expect(err).To(BeNil())
			cfg.Database.Type = store.DatabaseTypeSqlite
			cfg.Database.Name = filepath.Join(GinkgoT().TempDir(), "metrics.db")

			db, err := store.InitDB(cfg)
			Expect(err).To(BeNil())
			Expect(migrations.MigrateStore(db, cfg.Database.Type, "")).To(Succeed())

			s := store.NewStore(db)
			defer s.Close()

			for i, status := range []string{model.JobStatusProcessing, model.JobStatusError, model.JobStatusError} {
				id := string(rune('a' + i))
				_, err := s.Job().Log(context.TODO(), model.Job{ID: id, Sequence: "MENFQKVEKI", Status: status, ObjectKey: id + ".pdb"})
				Expect(err).To(BeNil())
			}

			reg := prometheus.NewRegistry()
			Expect(reg.Register(metrics.NewJobStatsCollector(s))).To(Succeed())

			expected := `
# HELP fold_planner_jobs Number of jobs in each status.
# TYPE fold_planner_jobs gauge
fold_planner_jobs{status="completed"} 0
fold_planner_jobs{status="error"} 2
fold_planner_jobs{status="processing"} 1
fold_planner_jobs{status="queued"} 0
fold_planner_jobs{status="submitted"} 0
`
			Expect(testutil.GatherAndCompare(reg, strings.NewReader(expected), "fold_planner_jobs")).To(Succeed())
		})
	})

	Context("handler", func() {
		It("serves the job counters", func() {
			metrics.IncreaseJobsSubmittedMetric(model.JobStatusProcessing)

			srv := httptest.NewServer(metrics.NewPrometheusMetricsHandler())
			defer srv.Close()

			resp, err := http.Get(srv.URL)
			Expect(err).To(BeNil())
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			Expect(err).To(BeNil())
			Expect(string(body)).To(ContainSubstring(`fold_planner_jobs_submitted_total{status="processing"}`))
		})
	})
})
