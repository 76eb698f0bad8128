package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
)

func TestStoresScopeByHousehold(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	home := seedHousehold(t, db, "Home")
	cabin := seedHousehold(t, db, "Cabin")
	alice := seedMember(t, db, home, "Alice")
	seedMember(t, db, cabin, "Dana")

	ts := NewTaskStore(db)
	task, err := ts.Create(ctx, newTestTask(home, "Dishes", alice))
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	got, err := ts.GetByID(ctx, cabin, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got != nil {
		t.Errorf("task visible from another household: %+v", got)
	}
	ok, err := ts.MarkCompleted(ctx, cabin, task.ID, alice, time.Now())
	if err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if ok {
		t.Error("task completed through another household")
	}
	moved := *task
	moved.HouseholdID = cabin
	moved.Title = "Moved"
	if updated, err := ts.Update(ctx, &moved); err != nil || updated != nil {
		t.Errorf("update from another household = %+v, %v; want nil, nil", updated, err)
	}
	if err := ts.Delete(ctx, cabin, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	still, err := ts.GetByID(ctx, home, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if still == nil || still.Title != "Dishes" || still.Completed {
		t.Errorf("task = %+v, want untouched Dishes", still)
	}
	if tasks, _ := ts.List(ctx, cabin); len(tasks) != 0 {
		t.Errorf("other household tasks = %d, want 0", len(tasks))
	}

	tokens := NewTokenStore(db)
	if _, err := tokens.Insert(ctx, home, alice, 5, "seed", nil, time.Now()); err != nil {
		t.Fatalf("insert tokens: %v", err)
	}
	if balance, _ := tokens.Balance(ctx, cabin, alice); balance != 0 {
		t.Errorf("balance from another household = %d, want 0", balance)
	}
	if entries, _ := tokens.List(ctx, cabin); len(entries) != 0 {
		t.Errorf("other household entries = %d, want 0", len(entries))
	}

	activity := NewActivityStore(db)
	_, err = activity.Insert(ctx, &model.ActivityEntry{
		HouseholdID: home, ActorID: alice, Action: model.ActionTaskCreated,
		EntityType: model.EntityTask, EntityID: task.ID, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("insert activity: %v", err)
	}
	if entries, _ := activity.List(ctx, cabin, 0, 0); len(entries) != 0 {
		t.Errorf("other household activity = %d, want 0", len(entries))
	}

	members := NewFamilyMemberStore(db)
	missing, err := members.Missing(ctx, cabin, []int64{alice})
	if err != nil {
		t.Fatalf("missing: %v", err)
	}
	if len(missing) != 1 || missing[0] != alice {
		t.Errorf("missing = %v, want [%d]", missing, alice)
	}

	rs := NewRewardStore(db)
	r, err := rs.Create(ctx, home, "Movie night", "", 5, true, time.Now())
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if foreign, _ := rs.GetByID(ctx, cabin, r.ID); foreign != nil {
		t.Errorf("reward visible from another household: %+v", foreign)
	}
	if rewards, _ := rs.List(ctx, cabin); len(rewards) != 0 {
		t.Errorf("other household rewards = %d, want 0", len(rewards))
	}
}
