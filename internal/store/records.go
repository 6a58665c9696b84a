package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/spigell/rallypoint/internal/errors"
	"go.uber.org/zap"
)

const StatusPending = "Pending"

// Project is a client-submitted request for work.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate reports the first missing required field. Values are stored as
// given; an email is only required to be non-blank.
func (p *Project) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return apperrors.InvalidInput("name is required", nil)
	case strings.TrimSpace(p.Email) == "":
		return apperrors.InvalidInput("email is required", nil)
	case strings.TrimSpace(p.Title) == "":
		return apperrors.InvalidInput("title is required", nil)
	case strings.TrimSpace(p.Description) == "":
		return apperrors.InvalidInput("description is required", nil)
	}
	return nil
}

// Posting is an admin-authored job shown to freelancers.
type Posting struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p *Posting) Validate() error {
	switch {
	case strings.TrimSpace(p.Title) == "":
		return apperrors.InvalidInput("title is required", nil)
	case strings.TrimSpace(p.Description) == "":
		return apperrors.InvalidInput("description is required", nil)
	}
	return nil
}

// AddProject stores p and returns the stored record.
func (s *Store) AddProject(ctx context.Context, p Project) (*Project, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(p.Status) == "" {
		p.Status = StatusPending
	}

	createdAt, stamp := s.timestamp()

	id, err := s.insert(ctx,
		`INSERT INTO projects (name, email, title, description, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.Email, p.Title, p.Description, p.Status, stamp,
	)
	if err != nil {
		return nil, internal("insert project", err)
	}

	p.ID = id
	p.CreatedAt = createdAt

	s.logger.Debug("project stored", zap.Int64("project_id", id))

	return &p, nil
}

// ListProjects returns all projects, most recent first.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, title, description, status, created_at FROM projects ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, internal("query projects", err)
	}
	defer rows.Close()

	projects := make([]Project, 0)
	for rows.Next() {
		var (
			p     Project
			stamp string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Title, &p.Description, &p.Status, &stamp); err != nil {
			return nil, internal("scan project", err)
		}
		if p.CreatedAt, err = parseTimestamp(stamp); err != nil {
			return nil, internal(fmt.Sprintf("parse created_at of project %d", p.ID), err)
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, internal("iterate projects", err)
	}

	return projects, nil
}

// AddPosting stores p and returns the stored record.
func (s *Store) AddPosting(ctx context.Context, p Posting) (*Posting, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	createdAt, stamp := s.timestamp()

	id, err := s.insert(ctx,
		`INSERT INTO postings (title, description, created_at) VALUES (?, ?, ?)`,
		p.Title, p.Description, stamp,
	)
	if err != nil {
		return nil, internal("insert posting", err)
	}

	p.ID = id
	p.CreatedAt = createdAt

	s.logger.Debug("posting stored", zap.Int64("posting_id", id))

	return &p, nil
}

// ListPostings returns all postings, most recent first.
func (s *Store) ListPostings(ctx context.Context) ([]Posting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, created_at FROM postings ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, internal("query postings", err)
	}
	defer rows.Close()

	return scanPostings(rows)
}

func scanPostings(rows *sql.Rows) ([]Posting, error) {
	postings := make([]Posting, 0)
	for rows.Next() {
		var (
			p     Posting
			stamp string
			err   error
		)
		if err = rows.Scan(&p.ID, &p.Title, &p.Description, &stamp); err != nil {
			return nil, internal("scan posting", err)
		}
		if p.CreatedAt, err = parseTimestamp(stamp); err != nil {
			return nil, internal(fmt.Sprintf("parse created_at of posting %d", p.ID), err)
		}
		postings = append(postings, p)
	}

	if err := rows.Err(); err != nil {
		return nil, internal("iterate postings", err)
	}

	return postings, nil
}
