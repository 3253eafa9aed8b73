package indexer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Course mirrors the latest published state of a course record.
type Course struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	CourseID        string    `gorm:"size:32;uniqueIndex"`
	Name            string    `gorm:"size:64"`
	Instructor      string    `gorm:"size:96;index"`
	RequiredCredits uint64
	Active          bool
	PublishedAt     time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Purchase is one credit purchase.
type Purchase struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Student        string    `gorm:"size:96;index"`
	Amount         uint64
	Cost           uint64
	TotalPurchased uint64
	CreatedAt      time.Time
}

// Enrollment tracks a registration and, once graded, its completion.
type Enrollment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Student     string    `gorm:"size:96;uniqueIndex:idx_enrollment_student_course"`
	CourseID    string    `gorm:"size:32;uniqueIndex:idx_enrollment_student_course"`
	CreditsPaid uint64
	Completed   bool
	Grade       *uint8
	Passed      bool
	Instructor  string `gorm:"size:96"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Certificate is an issued course certificate marker.
type Certificate struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Student     string    `gorm:"size:96;index"`
	CourseID    string    `gorm:"size:32;index"`
	Marker      string    `gorm:"size:96;uniqueIndex"`
	MetadataURI string    `gorm:"size:255"`
	CreatedAt   time.Time
}

// Graduation is an issued graduation marker. A student graduates once.
type Graduation struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Student          string    `gorm:"size:96;uniqueIndex"`
	Marker           string    `gorm:"size:96;uniqueIndex"`
	CoursesCompleted uint16
	RequiredCourses  int
	CreatedAt        time.Time
}

// AutoMigrate performs all schema migrations for the indexer.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Course{},
		&Purchase{},
		&Enrollment{},
		&Certificate{},
		&Graduation{},
	)
}
