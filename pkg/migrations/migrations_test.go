package migrations_test

import (
	"path/filepath"

	"github.com/kubev2v/fold-planner/internal/config"
	"github.com/kubev2v/fold-planner/internal/store"
	"github.com/kubev2v/fold-planner/pkg/migrations"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("migrations", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		cfg, err := config.Load()
		Expect(err).To(BeNil())
		cfg.Database.Type = store.DatabaseTypeSqlite
		cfg.Database.Name = filepath.Join(GinkgoT().TempDir(), "migrations.db")

		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
	})

	AfterAll(func() {
		s.Close()
	})

	tableExists := func(name string) bool {
		count := 0
		tx := gormdb.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
		Expect(tx.Error).To(BeNil())
		return count == 1
	}

	Context("store migrations", Ordered, func() {
		It("fails to migrate the db -- migration folder does not exist", func() {
			err := migrations.MigrateStore(gormdb, store.DatabaseTypeSqlite, "some folder")
			Expect(err).NotTo(BeNil())
		})

		It("fails to migrate the db -- unknown database type", func() {
			err := migrations.MigrateStore(gormdb, "oracle", "")
			Expect(err).NotTo(BeNil())
		})

		It("successfully migrates the db with the embedded migrations", func() {
			Expect(migrations.MigrateStore(gormdb, store.DatabaseTypeSqlite, "")).To(BeNil())
			Expect(tableExists("jobs")).To(BeTrue())
			Expect(tableExists("goose_db_version")).To(BeTrue())
		})

		It("is idempotent", func() {
			Expect(migrations.MigrateStore(gormdb, store.DatabaseTypeSqlite, "")).To(BeNil())
			Expect(tableExists("jobs")).To(BeTrue())
		})
	})
})
