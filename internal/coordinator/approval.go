package coordinator

import (
	"context"

	"github.com/ShayCichocki/hive/pkg/models"
)

// ApprovalPolicy is consulted before assigning tasks whose category requires
// confirmation. It is an injected capability, never a hidden singleton; a
// denial fails the task with reason approval_denied.
type ApprovalPolicy interface {
	// Approve returns whether the task may proceed. An error counts as denial.
	Approve(ctx context.Context, task *models.Task) (bool, error)
}

// ApproveFunc adapts a function to the ApprovalPolicy interface.
type ApproveFunc func(ctx context.Context, task *models.Task) (bool, error)

// Approve implements ApprovalPolicy.
func (f ApproveFunc) Approve(ctx context.Context, task *models.Task) (bool, error) {
	return f(ctx, task)
}

// AutoApprove approves every task. This is the default policy.
func AutoApprove() ApprovalPolicy {
	return ApproveFunc(func(context.Context, *models.Task) (bool, error) {
		return true, nil
	})
}

// CategoryPolicy requires confirmation for a fixed set of categories and
// auto-approves everything else. The confirm callback is typically an
// interactive prompt; it is only invoked for restricted categories.
type CategoryPolicy struct {
	// Restricted is the set of categories requiring confirmation.
	Restricted map[string]bool
	// Confirm decides restricted tasks. Nil denies all restricted tasks.
	Confirm func(ctx context.Context, task *models.Task) (bool, error)
}

// Approve implements ApprovalPolicy.
func (p *CategoryPolicy) Approve(ctx context.Context, task *models.Task) (bool, error) {
	if !p.Restricted[task.Category] {
		return true, nil
	}
	if p.Confirm == nil {
		return false, nil
	}
	return p.Confirm(ctx, task)
}

var _ ApprovalPolicy = (*CategoryPolicy)(nil)
