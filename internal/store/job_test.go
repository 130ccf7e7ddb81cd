package store_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kubev2v/fold-planner/internal/store"
	"github.com/kubev2v/fold-planner/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

const testSequence = "MENFQKVEKIGEGTYGVVYKARNKLTGEVVALKKIRLDTETEGVPSTAIREIS"

var _ = Describe("job store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	newJob := func() model.Job {
		id := uuid.NewString()
		return model.Job{
			ID:        id,
			Sequence:  testSequence,
			Name:      "protein",
			ObjectKey: id + ".pdb",
		}
	}

	countRows := func(id string) int {
		count := 0
		Expect(gormdb.Raw("SELECT COUNT(*) FROM jobs WHERE id = ?", id).Scan(&count).Error).To(BeNil())
		return count
	}

	BeforeAll(func() {
		gormdb = newTestDB()
		s = store.NewStore(gormdb)
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM jobs;")
	})

	Context("enqueue", func() {
		It("successfully enqueues a job", func() {
			j := newJob()
			job, err := s.Job().Enqueue(context.TODO(), j)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusQueued))
			Expect(job.Collection).To(Equal(model.CollectionQueue))
			Expect(job.SubmittedAt.IsZero()).To(BeFalse())

			queued, err := s.Job().GetQueued(context.TODO(), j.ID)
			Expect(err).To(BeNil())
			Expect(queued.Sequence).To(Equal(testSequence))

			_, err = s.Job().GetLogged(context.TODO(), j.ID)
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})

		It("fails to enqueue the same id twice", func() {
			j := newJob()
			_, err := s.Job().Enqueue(context.TODO(), j)
			Expect(err).To(BeNil())

			_, err = s.Job().Enqueue(context.TODO(), j)
			Expect(err).To(MatchError(store.ErrDuplicateKey))
			Expect(countRows(j.ID)).To(Equal(1))
		})
	})

	Context("dequeue and log", func() {
		It("logs a queued job without duplicating it", func() {
			j := newJob()
			_, err := s.Job().Enqueue(context.TODO(), j)
			Expect(err).To(BeNil())

			j.Status = model.JobStatusProcessing
			logged, err := s.Job().Log(context.TODO(), j)
			Expect(err).To(BeNil())
			Expect(logged.Collection).To(Equal(model.CollectionLog))
			Expect(logged.Status).To(Equal(model.JobStatusProcessing))
			Expect(countRows(j.ID)).To(Equal(1))

			_, err = s.Job().GetQueued(context.TODO(), j.ID)
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})

		It("dequeues a queued job", func() {
			j := newJob()
			_, err := s.Job().Enqueue(context.TODO(), j)
			Expect(err).To(BeNil())

			Expect(s.Job().Dequeue(context.TODO(), j.ID)).To(BeNil())
			Expect(countRows(j.ID)).To(Equal(0))
		})

		It("does not dequeue a logged job", func() {
			j := newJob()
			_, err := s.Job().Log(context.TODO(), j)
			Expect(err).To(BeNil())

			Expect(s.Job().Dequeue(context.TODO(), j.ID)).To(BeNil())
			Expect(countRows(j.ID)).To(Equal(1))
		})
	})

	Context("move to log", func() {
		It("moves a queued job to the log", func() {
			j := newJob()
			_, err := s.Job().Enqueue(context.TODO(), j)
			Expect(err).To(BeNil())

			now := time.Now()
			moved, err := s.Job().MoveToLog(context.TODO(), j.ID, model.NewStatusUpdate(model.JobStatusProcessing).WithProcessedAt(now))
			Expect(err).To(BeNil())
			Expect(moved.Collection).To(Equal(model.CollectionLog))
			Expect(moved.Status).To(Equal(model.JobStatusProcessing))
			Expect(moved.ProcessedAt).NotTo(BeNil())
			Expect(moved.ProcessedAt.Unix()).To(Equal(now.Unix()))

			_, err = s.Job().GetQueued(context.TODO(), j.ID)
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})

		It("records the error message", func() {
			j := newJob()
			_, err := s.Job().Enqueue(context.TODO(), j)
			Expect(err).To(BeNil())

			moved, err := s.Job().MoveToLog(context.TODO(), j.ID, model.NewStatusUpdate(model.JobStatusError).WithError("connection refused"))
			Expect(err).To(BeNil())
			Expect(moved.Status).To(Equal(model.JobStatusError))
			Expect(moved.Error).To(Equal("connection refused"))
		})

		It("refuses to move a job twice", func() {
			j := newJob()
			_, err := s.Job().Enqueue(context.TODO(), j)
			Expect(err).To(BeNil())

			_, err = s.Job().MoveToLog(context.TODO(), j.ID, model.NewStatusUpdate(model.JobStatusProcessing))
			Expect(err).To(BeNil())

			_, err = s.Job().MoveToLog(context.TODO(), j.ID, model.NewStatusUpdate(model.JobStatusError))
			Expect(err).To(MatchError(store.ErrNotQueued))

			job, err := s.Job().GetLogged(context.TODO(), j.ID)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusProcessing))
		})

		It("returns not found for an unknown job", func() {
			_, err := s.Job().MoveToLog(context.TODO(), uuid.NewString(), model.NewStatusUpdate(model.JobStatusProcessing))
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("update logged", func() {
		It("returns not found when the job is only queued", func() {
			j := newJob()
			_, err := s.Job().Enqueue(context.TODO(), j)
			Expect(err).To(BeNil())

			job, err := s.Job().UpdateLogged(context.TODO(), j.ID, model.NewStatusUpdate(model.JobStatusError))
			Expect(err).To(MatchError(store.ErrRecordNotFound))
			Expect(job).To(BeNil())
		})

		It("never rewrites a timestamp", func() {
			j := newJob()
			_, err := s.Job().Enqueue(context.TODO(), j)
			Expect(err).To(BeNil())

			first := time.Now().Add(-time.Hour)
			_, err = s.Job().MoveToLog(context.TODO(), j.ID, model.NewStatusUpdate(model.JobStatusProcessing).WithProcessedAt(first))
			Expect(err).To(BeNil())

			job, err := s.Job().UpdateLogged(context.TODO(), j.ID, model.JobUpdate{}.WithProcessedAt(time.Now()))
			Expect(err).To(BeNil())
			Expect(job.ProcessedAt.Unix()).To(Equal(first.Unix()))
		})
	})

	Context("complete", func() {
		It("completes a processing job exactly once", func() {
			j := newJob()
			_, err := s.Job().Enqueue(context.TODO(), j)
			Expect(err).To(BeNil())
			_, err = s.Job().MoveToLog(context.TODO(), j.ID, model.NewStatusUpdate(model.JobStatusProcessing))
			Expect(err).To(BeNil())

			first := time.Now().Add(-time.Minute)
			job, transitioned, err := s.Job().Complete(context.TODO(), j.ID, first)
			Expect(err).To(BeNil())
			Expect(transitioned).To(BeTrue())
			Expect(job.Status).To(Equal(model.JobStatusCompleted))
			Expect(job.CompletedAt.Unix()).To(Equal(first.Unix()))

			job, transitioned, err = s.Job().Complete(context.TODO(), j.ID, time.Now())
			Expect(err).To(BeNil())
			Expect(transitioned).To(BeFalse())
			Expect(job.CompletedAt.Unix()).To(Equal(first.Unix()))
		})

		It("does not complete a failed job", func() {
			j := newJob()
			_, err := s.Job().Enqueue(context.TODO(), j)
			Expect(err).To(BeNil())
			_, err = s.Job().MoveToLog(context.TODO(), j.ID, model.NewStatusUpdate(model.JobStatusError).WithError("boom"))
			Expect(err).To(BeNil())

			job, transitioned, err := s.Job().Complete(context.TODO(), j.ID, time.Now())
			Expect(err).To(BeNil())
			Expect(transitioned).To(BeFalse())
			Expect(job.Status).To(Equal(model.JobStatusError))
			Expect(job.CompletedAt).To(BeNil())
		})

		It("returns not found for a queued job", func() {
			j := newJob()
			_, err := s.Job().Enqueue(context.TODO(), j)
			Expect(err).To(BeNil())

			_, _, err = s.Job().Complete(context.TODO(), j.ID, time.Now())
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("list", func() {
		It("lists the queue and the log separately", func() {
			queued := newJob()
			_, err := s.Job().Enqueue(context.TODO(), queued)
			Expect(err).To(BeNil())

			for i := 0; i < 2; i++ {
				j := newJob()
				_, err := s.Job().Enqueue(context.TODO(), j)
				Expect(err).To(BeNil())
				_, err = s.Job().MoveToLog(context.TODO(), j.ID, model.NewStatusUpdate(model.JobStatusProcessing))
				Expect(err).To(BeNil())
			}

			q, l, err := s.Job().ListAll(context.TODO())
			Expect(err).To(BeNil())
			Expect(q).To(HaveLen(1))
			Expect(q[0].ID).To(Equal(queued.ID))
			Expect(l).To(HaveLen(2))
		})

		It("filters by status", func() {
			for _, status := range []string{model.JobStatusProcessing, model.JobStatusError, model.JobStatusError} {
				j := newJob()
				_, err := s.Job().Enqueue(context.TODO(), j)
				Expect(err).To(BeNil())
				_, err = s.Job().MoveToLog(context.TODO(), j.ID, model.NewStatusUpdate(status))
				Expect(err).To(BeNil())
			}

			jobs, err := s.Job().List(context.TODO(), store.NewJobQueryFilter().ByStatus(model.JobStatusError), nil)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(2))

			stats, err := s.Job().Stats(context.TODO())
			Expect(err).To(BeNil())
			Expect(stats.ByStatus[model.JobStatusError]).To(Equal(int64(2)))
			Expect(stats.ByStatus[model.JobStatusProcessing]).To(Equal(int64(1)))
		})
	})

	Context("concurrency", func() {
		It("keeps every concurrently enqueued and moved job", func() {
			const total = 25

			var wg sync.WaitGroup
			ids := make(chan string, total)
			for i := 0; i < total; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()

					j := newJob()
					_, err := s.Job().Enqueue(context.TODO(), j)
					Expect(err).To(BeNil())
					_, err = s.Job().MoveToLog(context.TODO(), j.ID, model.NewStatusUpdate(model.JobStatusProcessing))
					Expect(err).To(BeNil())
					ids <- j.ID
				}()
			}
			wg.Wait()
			close(ids)

			seen := map[string]bool{}
			for id := range ids {
				seen[id] = true
				_, err := s.Job().GetLogged(context.TODO(), id)
				Expect(err).To(BeNil(), fmt.Sprintf("job %s missing", id))
			}
			Expect(seen).To(HaveLen(total))

			q, l, err := s.Job().ListAll(context.TODO())
			Expect(err).To(BeNil())
			Expect(q).To(BeEmpty())
			Expect(l).To(HaveLen(total))
		})
	})
})
