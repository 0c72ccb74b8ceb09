//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"daypart-hub/internal/model"
	"daypart-hub/internal/repository"
	"daypart-hub/pkg/database"
	pkgerrors "daypart-hub/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=daypart password=daypart_password dbname=daypart_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// setupChain 建立 global → store 两级节点并返回清理函数
func setupChain(t *testing.T) (global, store *model.OrgNode, cleanup func()) {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewRepository(testDB)

	suffix := time.Now().UnixNano()
	global = &model.OrgNode{Level: "global", Name: fmt.Sprintf("global-%d", suffix)}
	if err := repo.OrgNode.Create(ctx, global); err != nil {
		t.Fatalf("创建全局节点失败: %v", err)
	}
	store = &model.OrgNode{Level: "store", Name: fmt.Sprintf("store-%d", suffix), ParentID: &global.NodeID}
	if err := repo.OrgNode.Create(ctx, store); err != nil {
		t.Fatalf("创建门店节点失败: %v", err)
	}

	cleanup = func() {
		ids := []string{global.NodeID, store.NodeID}
		testDB.Exec("DELETE FROM daypart_schedules WHERE definition_id IN (SELECT definition_id FROM daypart_definitions WHERE owner_node_id IN ?)", ids)
		testDB.Exec("DELETE FROM daypart_definitions WHERE owner_node_id IN ?", ids)
		testDB.Exec("DELETE FROM org_nodes WHERE node_id IN ?", ids)
	}
	return global, store, cleanup
}

func lunchFork(storeID, fromID string) *model.DaypartDefinition {
	return &model.DaypartDefinition{
		OwnerNodeID:  storeID,
		Name:         "lunch",
		DisplayLabel: "Lunch",
		IsCustomized: true,
		ForkedFromID: &fromID,
	}
}

// ═══════════════════════════════════════════════════════════
// ListAncestors
// ═══════════════════════════════════════════════════════════

func TestListAncestors_Postgres(t *testing.T) {
	global, store, cleanup := setupChain(t)
	defer cleanup()

	chain, err := repository.NewRepository(testDB).OrgNode.ListAncestors(context.Background(), store.NodeID)
	if err != nil {
		t.Fatalf("ListAncestors 失败: %v", err)
	}
	if len(chain) != 2 || chain[0].NodeID != store.NodeID || chain[1].NodeID != global.NodeID {
		t.Errorf("祖先链顺序不符: %+v", chain)
	}
}

// ═══════════════════════════════════════════════════════════
// 并发分叉
// ═══════════════════════════════════════════════════════════

func TestConcurrentFork_OnlyOneWins(t *testing.T) {
	global, store, cleanup := setupChain(t)
	defer cleanup()
	ctx := context.Background()
	repo := repository.NewRepository(testDB)

	base := &model.DaypartDefinition{OwnerNodeID: global.NodeID, Name: "lunch", DisplayLabel: "Lunch"}
	if err := repo.Definition.Create(ctx, base); err != nil {
		t.Fatalf("创建全局定义失败: %v", err)
	}

	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fork := lunchFork(store.NodeID, base.DefinitionID)
			fork.DefinitionID = uuid.NewString()
			errs[i] = repo.ChangeSet.Apply(ctx, &repository.ChangeSet{
				OperatorID:       fmt.Sprintf("worker-%d", i),
				CreateDefinition: fork,
				Inserts: []model.DaypartSchedule{{
					DefinitionID:  fork.DefinitionID,
					DaysOfWeek:    model.Weekdays{1, 2, 3, 4, 5},
					StartTime:     "11:00",
					EndTime:       "14:00",
					ScheduleKind:  "regular",
					PriorityLevel: 10,
				}},
			})
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, pkgerrors.ErrDuplicateFork):
			dup++
		default:
			t.Errorf("意外错误: %v", err)
		}
	}
	if ok != 1 || dup != workers-1 {
		t.Errorf("期望 1 个成功 %d 个冲突，实际 %d / %d", workers-1, ok, dup)
	}

	defs, err := repo.Definition.ListByOwners(ctx, []string{store.NodeID})
	if err != nil {
		t.Fatalf("ListByOwners 失败: %v", err)
	}
	if len(defs) != 1 || len(defs[0].Schedules) != 1 {
		t.Errorf("门店应只有 1 个分叉及其 1 条排期: %+v", defs)
	}
}

// ═══════════════════════════════════════════════════════════
// 乐观锁
// ═══════════════════════════════════════════════════════════

func TestOptimisticLock_Definition(t *testing.T) {
	global, _, cleanup := setupChain(t)
	defer cleanup()
	ctx := context.Background()
	repo := repository.NewRepository(testDB)

	def := &model.DaypartDefinition{OwnerNodeID: global.NodeID, Name: "dinner", DisplayLabel: "Dinner"}
	if err := repo.Definition.Create(ctx, def); err != nil {
		t.Fatalf("创建定义失败: %v", err)
	}
	loaded, err := repo.Definition.GetByID(ctx, def.DefinitionID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}

	stale := *loaded
	loaded.Color = "#ff8800"
	if err := repo.Definition.Update(ctx, loaded); err != nil {
		t.Fatalf("首次更新失败: %v", err)
	}
	if loaded.Version != 2 {
		t.Errorf("期望版本 2，实际 %d", loaded.Version)
	}

	stale.Color = "#000000"
	if err := repo.Definition.Update(ctx, &stale); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
}

func TestWeekdays_RoundTripPostgres(t *testing.T) {
	global, _, cleanup := setupChain(t)
	defer cleanup()
	ctx := context.Background()
	repo := repository.NewRepository(testDB)

	def := &model.DaypartDefinition{OwnerNodeID: global.NodeID, Name: "breakfast", DisplayLabel: "Breakfast"}
	if err := repo.Definition.Create(ctx, def); err != nil {
		t.Fatalf("创建定义失败: %v", err)
	}
	if err := repo.Schedule.BatchCreate(ctx, []model.DaypartSchedule{{
		DefinitionID:  def.DefinitionID,
		DaysOfWeek:    model.Weekdays{0, 6},
		StartTime:     "07:00",
		EndTime:       "10:30",
		ScheduleKind:  "regular",
		PriorityLevel: 10,
	}}); err != nil {
		t.Fatalf("BatchCreate 失败: %v", err)
	}

	rows, err := repo.Schedule.ListByDefinition(ctx, def.DefinitionID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("读取排期失败: %v, %d", err, len(rows))
	}
	if got := rows[0].DaysOfWeek; len(got) != 2 || got[0] != 0 || got[1] != 6 {
		t.Errorf("days_of_week 不符: %v", got)
	}
}
