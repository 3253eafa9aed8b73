// Package indexer projects committed academic events into a relational
// store so transcripts and credentials can be queried without walking state.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"academicchain/core/events"
	"academicchain/crypto"
	"academicchain/observability/metrics"
)

const defaultQueueSize = 1024

var (
	// ErrUnsupportedDriver is returned by Open for drivers other than sqlite
	// and postgres.
	ErrUnsupportedDriver = errors.New("indexer: unsupported driver")
	// ErrNotIndexed is returned when a lookup finds no row.
	ErrNotIndexed = errors.New("indexer: record not indexed")
)

// Open connects to the configured database.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	return gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
}

type Option func(*Indexer)

// WithQueueSize bounds the number of events buffered ahead of the writer.
func WithQueueSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.queueSize = n
		}
	}
}

func WithMetrics(m *metrics.AcademicMetrics) Option {
	return func(ix *Indexer) { ix.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(ix *Indexer) {
		if now != nil {
			ix.nowFn = now
		}
	}
}

// Indexer is an events.Emitter that writes events in emission order on a
// single background worker.
type Indexer struct {
	db        *gorm.DB
	logger    *slog.Logger
	metrics   *metrics.AcademicMetrics
	nowFn     func() time.Time
	queueSize int

	queue     chan events.Event
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// New migrates the schema and returns an indexer. Call Start to begin
// draining emitted events.
func New(db *gorm.DB, logger *slog.Logger, opts ...Option) (*Indexer, error) {
	if db == nil {
		return nil, errors.New("indexer: database required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ix := &Indexer{
		db:        db,
		logger:    logger,
		nowFn:     time.Now,
		queueSize: defaultQueueSize,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ix)
		}
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	ix.queue = make(chan events.Event, ix.queueSize)
	return ix, nil
}

// Start launches the background writer.
func (ix *Indexer) Start() {
	ix.startOnce.Do(func() {
		go ix.run()
	})
}

func (ix *Indexer) run() {
	defer close(ix.done)
	for evt := range ix.queue {
		if err := ix.Record(context.Background(), evt); err != nil {
			ix.logger.Error("index event failed", "event", evt.EventType(), "error", err)
		}
		ix.metrics.SetIndexerPending(len(ix.queue))
	}
}

// Emit queues evt for the writer. Events emitted after Close are dropped.
func (ix *Indexer) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		ix.logger.Warn("indexer closed, dropping event", "event", evt.EventType())
		return
	}
	ix.queue <- evt
	ix.metrics.SetIndexerPending(len(ix.queue))
}

// Close stops accepting events and waits for queued events to be written.
func (ix *Indexer) Close() error {
	ix.closeOnce.Do(func() {
		ix.mu.Lock()
		ix.closed = true
		close(ix.queue)
		ix.mu.Unlock()
		ix.Start()
		<-ix.done
	})
	return nil
}

// Record writes a single event synchronously. Event types without a
// projection are ignored.
func (ix *Indexer) Record(ctx context.Context, evt events.Event) error {
	db := ix.db.WithContext(ctx)
	now := ix.nowFn().UTC()
	switch e := evt.(type) {
	case events.CourseCreated:
		row := Course{
			ID:              uuid.New(),
			CourseID:        e.CourseID,
			Name:            e.CourseName,
			Instructor:      identity(e.Instructor),
			RequiredCredits: e.RequiredCredits,
			Active:          true,
			PublishedAt:     time.Unix(e.CreatedAt, 0).UTC(),
		}
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "instructor", "required_credits", "active", "published_at", "updated_at"}),
		}).Create(&row).Error
	case events.CourseStatusChanged:
		return db.Model(&Course{}).Where("course_id = ?", e.CourseID).Update("active", e.Active).Error
	case events.CreditsPurchased:
		return db.Create(&Purchase{
			ID:             uuid.New(),
			Student:        identity(e.Student),
			Amount:         e.Amount,
			Cost:           e.Cost,
			TotalPurchased: e.TotalPurchased,
			CreatedAt:      now,
		}).Error
	case events.StudentEnrolled:
		return db.Create(&Enrollment{
			ID:          uuid.New(),
			Student:     identity(e.Student),
			CourseID:    e.CourseID,
			CreditsPaid: e.CreditsPaid,
			CreatedAt:   now,
			UpdatedAt:   now,
		}).Error
	case events.CourseCompleted:
		return ix.recordCompletion(db, e, now)
	case events.CertificateMinted:
		return db.Create(&Certificate{
			ID:          uuid.New(),
			Student:     identity(e.Student),
			CourseID:    e.CourseID,
			Marker:      crypto.FormatRecord(common.Address(e.Marker)),
			MetadataURI: e.MetadataURI,
			CreatedAt:   now,
		}).Error
	case events.GraduationClaimed:
		return db.Create(&Graduation{
			ID:               uuid.New(),
			Student:          identity(e.Student),
			Marker:           crypto.FormatRecord(common.Address(e.Marker)),
			CoursesCompleted: e.CoursesCompleted,
			RequiredCourses:  e.RequiredCourses,
			CreatedAt:        now,
		}).Error
	default:
		return nil
	}
}

// recordCompletion grades the enrollment row, creating it when the
// registration predates the indexer.
func (ix *Indexer) recordCompletion(db *gorm.DB, e events.CourseCompleted, now time.Time) error {
	student := identity(e.Student)
	grade := e.Grade
	return db.Transaction(func(tx *gorm.DB) error {
		var row Enrollment
		err := tx.Where("student = ? AND course_id = ?", student, e.CourseID).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = Enrollment{ID: uuid.New(), Student: student, CourseID: e.CourseID, CreatedAt: now}
		case err != nil:
			return err
		}
		row.Completed = true
		row.Grade = &grade
		row.Passed = e.Passed
		row.Instructor = identity(e.Instructor)
		row.UpdatedAt = now
		return tx.Save(&row).Error
	})
}

// Transcript lists the student's enrollments ordered by registration.
func (ix *Indexer) Transcript(ctx context.Context, student string) ([]Enrollment, error) {
	var rows []Enrollment
	err := ix.db.WithContext(ctx).Where("student = ?", student).Order("created_at ASC, course_id ASC").Find(&rows).Error
	return rows, err
}

func (ix *Indexer) Purchases(ctx context.Context, student string) ([]Purchase, error) {
	var rows []Purchase
	err := ix.db.WithContext(ctx).Where("student = ?", student).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (ix *Indexer) Certificates(ctx context.Context, student string) ([]Certificate, error) {
	var rows []Certificate
	err := ix.db.WithContext(ctx).Where("student = ?", student).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (ix *Indexer) Graduation(ctx context.Context, student string) (*Graduation, error) {
	var row Graduation
	err := ix.db.WithContext(ctx).Where("student = ?", student).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotIndexed
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (ix *Indexer) Course(ctx context.Context, courseID string) (*Course, error) {
	var row Course
	err := ix.db.WithContext(ctx).Where("course_id = ?", courseID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotIndexed
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func identity(addr [20]byte) string {
	return crypto.FormatIdentity(common.Address(addr))
}
