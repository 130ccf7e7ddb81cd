package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kubev2v/fold-planner/internal/predictor"
	"github.com/kubev2v/fold-planner/internal/service"
	"github.com/kubev2v/fold-planner/internal/storage"
	"github.com/kubev2v/fold-planner/internal/store"
	"github.com/kubev2v/fold-planner/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sync/errgroup"
)

const testSequence = "MENFQKVEKIGEGTYGVVYKARNKLTGEVVALKKIRLDTETEGVPSTAIREIS"

var _ = Describe("job service", func() {
	var (
		s       store.Store
		adapter *storage.MemoryAdapter
		pred    *fakePredictor
		writer  *recordingWriter
		srv     *service.JobService
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.TODO()
		s = newTestStore()
		adapter = storage.NewMemoryAdapter("mem://results")
		pred = &fakePredictor{}
		writer = &recordingWriter{}
		srv = service.NewJobService(s, adapter, pred, service.WithEventWriter(writer))
	})

	AfterEach(func() {
		s.Close()
	})

	Context("submit", func() {
		It("dispatches a valid sequence and logs it as processing", func() {
			res, err := srv.Submit(ctx, strings.ToLower(testSequence), "")
			Expect(err).To(BeNil())
			Expect(uuid.Validate(res.Job.ID)).To(Succeed())
			Expect(res.StorageURL).NotTo(BeEmpty())
			Expect(res.Message).To(Equal(service.MessageSubmitted))
			Expect(res.Job.Status).To(Equal(model.JobStatusProcessing))
			Expect(res.Job.ProcessedAt).NotTo(BeNil())

			reqs := pred.Requests()
			Expect(reqs).To(HaveLen(1))
			Expect(reqs[0].JobID).To(Equal(res.Job.ID))
			Expect(reqs[0].Sequence).To(Equal(testSequence))
			Expect(reqs[0].Name).To(Equal("protein"))
			Expect(reqs[0].StorageURL).To(Equal(res.StorageURL))

			_, err = s.Job().GetQueued(ctx, res.Job.ID)
			Expect(err).To(MatchError(store.ErrRecordNotFound))
			logged, err := s.Job().GetLogged(ctx, res.Job.ID)
			Expect(err).To(BeNil())
			Expect(logged.ObjectKey).To(Equal(storage.ObjectName(res.Job.ID)))

			Expect(writer.Statuses(res.Job.ID)).To(Equal([]string{model.JobStatusQueued, model.JobStatusProcessing}))
		})

		It("rejects a short sequence without creating a job", func() {
			_, err := srv.Submit(ctx, "SHORT", "")
			Expect(err).NotTo(BeNil())
			var invalid *service.ErrInvalidSequence
			Expect(errors.As(err, &invalid)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("too short"))

			q, l, err := srv.ListAll(ctx)
			Expect(err).To(BeNil())
			Expect(q).To(BeEmpty())
			Expect(l).To(BeEmpty())
			Expect(pred.Requests()).To(BeEmpty())
		})

		It("rejects non standard residues", func() {
			_, err := srv.Submit(ctx, "BJOUXZBJOUXZ", "")
			var invalid *service.ErrInvalidSequence
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})

		It("records a dispatch failure on the job", func() {
			pred.submitErr = errors.New("connection refused")

			res, err := srv.Submit(ctx, testSequence, "cdk2")
			Expect(err).To(BeNil())
			Expect(res.Message).To(Equal(service.MessageDispatchFailed))
			Expect(res.Job.Status).To(Equal(model.JobStatusError))
			Expect(res.Job.Error).To(ContainSubstring("connection refused"))

			status, err := srv.GetStatus(ctx, res.Job.ID)
			Expect(err).To(BeNil())
			Expect(status.Job.Status).To(Equal(model.JobStatusError))
			Expect(status.Message).To(ContainSubstring("connection refused"))
		})

		It("fails when no read url can be signed", func() {
			adapter.FailWith(errors.New("expired credentials"))

			_, err := srv.Submit(ctx, testSequence, "")
			var unavailable *service.ErrStorageUnavailable
			Expect(errors.As(err, &unavailable)).To(BeTrue())
			Expect(pred.Requests()).To(BeEmpty())
		})

		It("keeps every concurrent submission", func() {
			const total = 20

			ids := make([]string, total)
			g, gctx := errgroup.WithContext(ctx)
			for i := 0; i < total; i++ {
				g.Go(func() error {
					res, err := srv.Submit(gctx, testSequence, "")
					if err != nil {
						return err
					}
					ids[i] = res.Job.ID
					return nil
				})
			}
			Expect(g.Wait()).To(Succeed())

			seen := map[string]bool{}
			for _, id := range ids {
				Expect(seen).NotTo(HaveKey(id))
				seen[id] = true

				status, err := srv.GetStatus(ctx, id)
				Expect(err).To(BeNil())
				Expect(status.Job.Status).To(Equal(model.JobStatusProcessing))
			}

			q, l, err := srv.ListAll(ctx)
			Expect(err).To(BeNil())
			Expect(q).To(BeEmpty())
			Expect(l).To(HaveLen(total))
		})
	})

	Context("status", func() {
		It("reports an unknown job", func() {
			_, err := srv.GetStatus(ctx, uuid.NewString())
			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(err.Error()).To(Equal("Job not found"))
		})

		It("reports a queued job without touching storage", func() {
			id := uuid.NewString()
			_, err := s.Job().Enqueue(ctx, model.Job{ID: id, Sequence: testSequence, ObjectKey: storage.ObjectName(id)})
			Expect(err).To(BeNil())
			adapter.FailWith(errors.New("unreachable"))

			status, err := srv.GetStatus(ctx, id)
			Expect(err).To(BeNil())
			Expect(status.Job.Status).To(Equal(model.JobStatusQueued))
			Expect(status.Message).To(Equal(service.MessageQueued))
			Expect(status.StorageURL).To(BeEmpty())
		})

		It("adds the predictor progress while processing", func() {
			pred.progress = &predictor.Progress{Status: "running", Progress: 40}
			res, err := srv.Submit(ctx, testSequence, "")
			Expect(err).To(BeNil())

			status, err := srv.GetStatus(ctx, res.Job.ID)
			Expect(err).To(BeNil())
			Expect(status.Uploaded).To(BeFalse())
			Expect(status.StorageURL).NotTo(BeEmpty())
			Expect(status.Progress).NotTo(BeNil())
			Expect(*status.Progress).To(Equal(40))
		})

		It("ignores an unreachable progress endpoint", func() {
			pred.progressErr = errors.New("timeout")
			res, err := srv.Submit(ctx, testSequence, "")
			Expect(err).To(BeNil())

			status, err := srv.GetStatus(ctx, res.Job.ID)
			Expect(err).To(BeNil())
			Expect(status.Progress).To(BeNil())
		})

		It("reports completion from storage without persisting it", func() {
			res, err := srv.Submit(ctx, testSequence, "")
			Expect(err).To(BeNil())
			adapter.Put(storage.ObjectName(res.Job.ID))

			for i := 0; i < 2; i++ {
				status, err := srv.GetStatus(ctx, res.Job.ID)
				Expect(err).To(BeNil())
				Expect(status.Job.Status).To(Equal(model.JobStatusCompleted))
				Expect(status.Uploaded).To(BeTrue())
				Expect(status.Progress).To(BeNil())
			}

			logged, err := s.Job().GetLogged(ctx, res.Job.ID)
			Expect(err).To(BeNil())
			Expect(logged.Status).To(Equal(model.JobStatusProcessing))
		})

		It("fails on a storage error other than not found", func() {
			res, err := srv.Submit(ctx, testSequence, "")
			Expect(err).To(BeNil())
			adapter.FailWith(errors.New("throttled"))

			_, err = srv.GetStatus(ctx, res.Job.ID)
			var unavailable *service.ErrStorageUnavailable
			Expect(errors.As(err, &unavailable)).To(BeTrue())
		})
	})

	Context("check result", func() {
		It("reports a job that was never logged", func() {
			id := uuid.NewString()
			_, err := s.Job().Enqueue(ctx, model.Job{ID: id, Sequence: testSequence, ObjectKey: storage.ObjectName(id)})
			Expect(err).To(BeNil())

			_, err = srv.CheckResult(ctx, id)
			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("reports a job still processing", func() {
			res, err := srv.Submit(ctx, testSequence, "")
			Expect(err).To(BeNil())

			result, err := srv.CheckResult(ctx, res.Job.ID)
			Expect(err).To(BeNil())
			Expect(result.Status).To(Equal(model.JobStatusProcessing))
			Expect(result.Message).To(Equal(service.MessageProcessing))
			Expect(result.StorageURL).To(BeEmpty())
		})

		It("completes the job exactly once", func() {
			res, err := srv.Submit(ctx, testSequence, "")
			Expect(err).To(BeNil())
			adapter.Put(storage.ObjectName(res.Job.ID))

			first, err := srv.CheckResult(ctx, res.Job.ID)
			Expect(err).To(BeNil())
			Expect(first.Status).To(Equal(model.JobStatusCompleted))
			Expect(first.StorageURL).NotTo(BeEmpty())
			Expect(first.CompletedAt).NotTo(BeNil())

			second, err := srv.CheckResult(ctx, res.Job.ID)
			Expect(err).To(BeNil())
			Expect(second.Status).To(Equal(model.JobStatusCompleted))
			Expect(second.CompletedAt.Equal(*first.CompletedAt)).To(BeTrue())

			Expect(writer.Statuses(res.Job.ID)).To(Equal([]string{model.JobStatusQueued, model.JobStatusProcessing, model.JobStatusCompleted}))
		})

		It("completes once under concurrent checks", func() {
			res, err := srv.Submit(ctx, testSequence, "")
			Expect(err).To(BeNil())
			adapter.Put(storage.ObjectName(res.Job.ID))

			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					result, err := srv.CheckResult(ctx, res.Job.ID)
					Expect(err).To(BeNil())
					Expect(result.Status).To(Equal(model.JobStatusCompleted))
				}()
			}
			wg.Wait()

			completed := 0
			for _, st := range writer.Statuses(res.Job.ID) {
				if st == model.JobStatusCompleted {
					completed++
				}
			}
			Expect(completed).To(Equal(1))
		})

		It("does not complete a failed job", func() {
			pred.submitErr = errors.New("no gpu")
			res, err := srv.Submit(ctx, testSequence, "")
			Expect(err).To(BeNil())
			adapter.Put(storage.ObjectName(res.Job.ID))

			result, err := srv.CheckResult(ctx, res.Job.ID)
			Expect(err).To(BeNil())
			Expect(result.Status).To(Equal(model.JobStatusError))
		})
	})

	Context("health", func() {
		It("pings the store", func() {
			Expect(srv.Health(ctx)).To(Succeed())
		})
	})
})
