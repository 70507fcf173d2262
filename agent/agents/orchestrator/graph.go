package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/outreach-orchestrator/agent/nodes/orchestrator"
)

func (o *Orchestrator) compileCampaignGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode(nodex.NodeValidate,
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.defaultOwnerID, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeValidate, err)
	}

	if err := graph.AddLambdaNode(nodex.NodeDiscover,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DiscoverLeads(ctx, in, o.discovery)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeDiscover, err)
	}

	if err := graph.AddLambdaNode(nodex.NodeEnrich,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.EnrichLeads(ctx, in, o.enrichment)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeEnrich, err)
	}

	if err := graph.AddLambdaNode(nodex.NodePlan,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.PlanOutreach(ctx, in, o.planner)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodePlan, err)
	}

	if err := graph.AddLambdaNode(nodex.NodeSave,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SavePlan(ctx, in, o.records)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeSave, err)
	}

	if err := graph.AddLambdaNode(nodex.NodeFinalize,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.Finalize(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeFinalize, err)
	}

	if err := graph.AddBranch(nodex.NodeValidate, compose.NewGraphBranch(
		nodex.RouteAfterValidate,
		map[string]bool{nodex.NodeDiscover: true, nodex.NodeEnrich: true},
	)); err != nil {
		return nil, fmt.Errorf("add branch after %s: %w", nodex.NodeValidate, err)
	}

	edges := [][2]string{
		{compose.START, nodex.NodeValidate},
		// An empty discovery still runs enrich and plan so the empty plan is saved.
		{nodex.NodeDiscover, nodex.NodeEnrich},
		{nodex.NodeEnrich, nodex.NodePlan},
		{nodex.NodePlan, nodex.NodeSave},
		{nodex.NodeSave, nodex.NodeFinalize},
		{nodex.NodeFinalize, compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.campaign"))
	if err != nil {
		return nil, fmt.Errorf("compile campaign graph: %w", err)
	}
	return runner, nil
}
