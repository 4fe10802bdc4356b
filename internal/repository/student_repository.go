package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/feeline-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create inserts a new student. The STU display id comes from a database
// sequence so concurrent writers can never collide.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.StudID == "" {
		var id string
		if err := r.db.GetContext(ctx, &id, `SELECT 'STU' || LPAD(nextval('student_display_id_seq')::text, 3, '0')`); err != nil {
			return fmt.Errorf("next student id: %w", err)
		}
		student.StudID = id
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO students (stud_id, name, class, parent_name, parent_no, phone_no, email, created_at)
        VALUES (:stud_id, :name, :class, :parent_name, :parent_no, :phone_no, :email, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// FindByID fetches a student by display id.
func (r *StudentRepository) FindByID(ctx context.Context, studID string) (*models.Student, error) {
	const query = `SELECT stud_id, name, class, parent_name, parent_no, phone_no, email, created_at
        FROM students WHERE stud_id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, studID); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByName fetches the first student with a case-insensitive name match.
func (r *StudentRepository) FindByName(ctx context.Context, name string) (*models.Student, error) {
	const query = `SELECT stud_id, name, class, parent_name, parent_no, phone_no, email, created_at
        FROM students WHERE LOWER(name) = LOWER($1) ORDER BY stud_id LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, strings.TrimSpace(name)); err != nil {
		return nil, err
	}
	return &student, nil
}

// List returns students matching the provided filters plus a total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Class != "" {
		conditions = append(conditions, fmt.Sprintf("class = $%d", len(args)+1))
		args = append(args, filter.Class)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(stud_id) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT stud_id, name, class, parent_name, parent_no, phone_no, email, created_at
        %s ORDER BY stud_id LIMIT %d OFFSET %d`, base, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every student, used by the reminder broadcast.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	const query = `SELECT stud_id, name, class, parent_name, parent_no, phone_no, email, created_at
        FROM students ORDER BY stud_id`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}
