package service

import (
	"context"

	"daypart-hub/internal/daypart"
	"daypart-hub/internal/repository"
)

// snapshot 某节点祖先链上的全部定义与排期，以及加载时的行版本。
// 写计划基于快照生成，提交时用这些版本号检测并发修改。
type snapshot struct {
	nodeID           string
	level            daypart.Level
	resolver         *daypart.Resolver
	defVersions      map[string]int
	scheduleVersions map[string]int
}

// loadSnapshot 加载 nodeID 的祖先链并建立 Resolver
func loadSnapshot(ctx context.Context, repo *repository.Repository, nodeID string, opts ...daypart.Option) (*snapshot, error) {
	chain, err := repo.OrgNode.ListAncestors(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, daypart.ErrNodeNotFound
	}

	nodes := make([]daypart.Node, 0, len(chain))
	ownerIDs := make([]string, 0, len(chain))
	for i := range chain {
		n, err := toDomainNode(&chain[i])
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
		ownerIDs = append(ownerIDs, n.ID)
	}

	rows, err := repo.Definition.ListByOwners(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}

	snap := &snapshot{
		nodeID:           nodeID,
		level:            nodes[0].Level,
		defVersions:      make(map[string]int, len(rows)),
		scheduleVersions: make(map[string]int),
	}
	defs := make([]daypart.Definition, 0, len(rows))
	var schedules []daypart.Schedule
	for i := range rows {
		defs = append(defs, toDomainDefinition(&rows[i]))
		snap.defVersions[rows[i].DefinitionID] = rows[i].Version
		for j := range rows[i].Schedules {
			row := &rows[i].Schedules[j]
			s, err := toDomainSchedule(row)
			if err != nil {
				return nil, err
			}
			schedules = append(schedules, s)
			snap.scheduleVersions[row.ScheduleID] = row.Version
		}
	}

	snap.resolver, err = daypart.NewResolver(nodes, defs, schedules, opts...)
	if err != nil {
		return nil, err
	}
	return snap, nil
}
