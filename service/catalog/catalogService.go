package catalogsvc

import (
	"context"
	"errors"
	"strings"

	"github.com/ivlisss/bookstore/model"
	catalogrepo "github.com/ivlisss/bookstore/repository/catalog"
)

var (
	ErrNotFound = errors.New("not found")
	ErrBadInput = errors.New("invalid payload")
)

type Repo = catalogrepo.Repo

type Service interface {
	CreateCategory(ctx context.Context, c *model.Category) error
	ListCategories(ctx context.Context) ([]model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	CreateAuthor(ctx context.Context, a *model.Author) error
	ListAuthors(ctx context.Context) ([]model.Author, error)
	DeleteAuthor(ctx context.Context, id int64) error

	CreatePublisher(ctx context.Context, p *model.Publisher) error
	ListPublishers(ctx context.Context) ([]model.Publisher, error)
	DeletePublisher(ctx context.Context, id int64) error
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func (s *service) CreateCategory(ctx context.Context, c *model.Category) error {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Slug) == "" {
		return ErrBadInput
	}
	return s.r.CreateCategory(ctx, c)
}

func (s *service) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.r.ListCategories(ctx)
}

func (s *service) DeleteCategory(ctx context.Context, id int64) error {
	return s.del(s.r.DeleteCategory(ctx, id))
}

func (s *service) CreateAuthor(ctx context.Context, a *model.Author) error {
	if strings.TrimSpace(a.FirstName) == "" || strings.TrimSpace(a.LastName) == "" {
		return ErrBadInput
	}
	return s.r.CreateAuthor(ctx, a)
}

func (s *service) ListAuthors(ctx context.Context) ([]model.Author, error) {
	return s.r.ListAuthors(ctx)
}

func (s *service) DeleteAuthor(ctx context.Context, id int64) error {
	return s.del(s.r.DeleteAuthor(ctx, id))
}

func (s *service) CreatePublisher(ctx context.Context, p *model.Publisher) error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrBadInput
	}
	return s.r.CreatePublisher(ctx, p)
}

func (s *service) ListPublishers(ctx context.Context) ([]model.Publisher, error) {
	return s.r.ListPublishers(ctx)
}

func (s *service) DeletePublisher(ctx context.Context, id int64) error {
	return s.del(s.r.DeletePublisher(ctx, id))
}

func (s *service) del(ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
