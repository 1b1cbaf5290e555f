package service

import (
	"context"

	"dog-marker/internal/model"
	"dog-marker/internal/repository"
)

type CategoryService struct {
	store *repository.Store
}

func NewCategoryService(store *repository.Store) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	return s.store.Categories.List(ctx)
}
