// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"context"

	"github.com/VozzyUp/vozzysmartoficial/workflow"
)

var _ workflow.Executor = &WorkflowEngine{}

func NewWorkflowEngine() *WorkflowEngine {
	return &WorkflowEngine{}
}

type WorkflowEngine struct {
}

func (w WorkflowEngine) Execute(ctx context.Context, wf workflow.Workflow) error {
	return wf.Execute(ctx)
}
