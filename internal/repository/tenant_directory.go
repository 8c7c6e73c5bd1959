package repository

import (
	"context"

	"github.com/noah-isme/college-hub-api/internal/models"
)

// TenantDirectory resolves colleges and departments by id without scoping. It backs
// registration and import, which validate tenant ids supplied by the caller.
type TenantDirectory struct {
	colleges    *CollegeRepository
	departments *DepartmentRepository
}

// NewTenantDirectory constructs a TenantDirectory.
func NewTenantDirectory(colleges *CollegeRepository, departments *DepartmentRepository) *TenantDirectory {
	return &TenantDirectory{colleges: colleges, departments: departments}
}

// GetCollege fetches a college by id.
func (d *TenantDirectory) GetCollege(ctx context.Context, id string) (*models.College, error) {
	return d.colleges.Get(ctx, id)
}

// GetDepartment fetches a department by id.
func (d *TenantDirectory) GetDepartment(ctx context.Context, id string) (*models.Department, error) {
	return d.departments.Get(ctx, id)
}
