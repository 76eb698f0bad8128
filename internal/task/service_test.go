package task

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/chorewheel/internal/activity"
	"github.com/dukerupert/chorewheel/internal/apperr"
	"github.com/dukerupert/chorewheel/internal/database"
	"github.com/dukerupert/chorewheel/internal/ledger"
	"github.com/dukerupert/chorewheel/internal/metrics"
	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/store"
)

type testEnv struct {
	svc      *Service
	tasks    *store.TaskStore
	subtasks *store.SubtaskStore
	tokens   *store.TokenStore
	activity *store.ActivityStore
	hh       int64
	alice    int64
	bob      int64
	carol    int64
	away     int64
	dana     int64
	clock    time.Time
}

type failingLedger struct{}

func (failingLedger) Award(context.Context, int64, int64, int, string, *model.TokenLink) (*model.TokenEntry, error) {
	return nil, errors.New("ledger unavailable")
}

// failingRecorder fails on one action and passes everything else through.
type failingRecorder struct {
	next   Recorder
	action model.ActionType
}

func (f failingRecorder) Record(ctx context.Context, e model.ActivityEntry) (*model.ActivityEntry, error) {
	if e.Action == f.action {
		return nil, errors.New("activity log unavailable")
	}
	return f.next.Record(ctx, e)
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	h, err := store.NewHouseholdStore(db).Create(ctx, "Home", "hash")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	members := store.NewFamilyMemberStore(db)
	var ids []int64
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		m, err := members.Create(ctx, h.ID, name, name[:1], "#3B82F6")
		if err != nil {
			t.Fatalf("create member: %v", err)
		}
		ids = append(ids, m.ID)
	}

	other, err := store.NewHouseholdStore(db).Create(ctx, "Cabin", "hash")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	dana, err := members.Create(ctx, other.ID, "Dana", "D", "#10B981")
	if err != nil {
		t.Fatalf("create member: %v", err)
	}

	env := &testEnv{
		away:     other.ID,
		dana:     dana.ID,
		tasks:    store.NewTaskStore(db),
		subtasks: store.NewSubtaskStore(db),
		tokens:   store.NewTokenStore(db),
		activity: store.NewActivityStore(db),
		hh:       h.ID,
		alice:    ids[0],
		bob:      ids[1],
		carol:    ids[2],
		clock:    time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	}
	m := metrics.New()
	recorder := activity.NewRecorder(env.activity, nil, m, slog.Default())
	env.svc = NewService(env.tasks, env.subtasks, members, ledger.New(env.tokens, slog.Default()), recorder, m, slog.Default())
	env.svc.now = func() time.Time { return env.clock }
	return env
}

func (e *testEnv) create(t *testing.T, in CreateInput) *View {
	t.Helper()
	if in.CreatedBy == 0 {
		in.CreatedBy = e.alice
	}
	v, err := e.svc.Create(context.Background(), e.hh, in)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return v
}

func (e *testEnv) actions(t *testing.T) []model.ActionType {
	t.Helper()
	entries, err := e.activity.List(context.Background(), e.hh, 0, 0)
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	out := make([]model.ActionType, len(entries))
	// oldest first reads more naturally in assertions
	for i, entry := range entries {
		out[len(entries)-1-i] = entry.Action
	}
	return out
}

func (e *testEnv) entriesFor(t *testing.T, action model.ActionType) []model.ActivityEntry {
	t.Helper()
	entries, err := e.activity.List(context.Background(), e.hh, 0, 0)
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	var out []model.ActivityEntry
	for _, entry := range entries {
		if entry.Action == action {
			out = append(out, entry)
		}
	}
	return out
}

func TestCreateValidation(t *testing.T) {
	env := setupEnv(t)

	_, err := env.svc.Create(context.Background(), env.hh, CreateInput{CreatedBy: env.alice, TokenValue: -1})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	for _, field := range []string{"title", "assignee_ids", "token_value"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("fields = %v, want %s", verr.Fields, field)
		}
	}

	_, err = env.svc.Create(context.Background(), env.hh, CreateInput{
		Title: "Dishes", AssigneeIDs: model.MemberIDs{999}, CreatedBy: env.alice,
	})
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError for unknown assignee", err)
	}

	if got := env.actions(t); len(got) != 0 {
		t.Errorf("activity = %v, want nothing written", got)
	}
}

func TestCreateDefaults(t *testing.T) {
	env := setupEnv(t)

	v := env.create(t, CreateInput{Title: "  Buy milk ", AssigneeIDs: model.MemberIDs{env.bob}})
	if v.Title != "Buy milk" {
		t.Errorf("title = %q, want %q", v.Title, "Buy milk")
	}
	if v.Recurrence != model.RecurrenceOnce || v.Completed || v.RotationIndex != 0 {
		t.Errorf("task = %+v, want open once task at index 0", v.Task)
	}
	if v.Status != StatusPending {
		t.Errorf("status = %q, want pending", v.Status)
	}
	if got := env.actions(t); len(got) != 1 || got[0] != model.ActionTaskCreated {
		t.Errorf("activity = %v, want [task_created]", got)
	}
}

func TestCompleteAwardsTokens(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	v := env.create(t, CreateInput{Title: "Trash", AssigneeIDs: model.MemberIDs{env.bob}, TokenValue: 5})

	res, err := env.svc.Complete(ctx, env.hh, v.ID, env.bob)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !res.Task.Completed || res.Task.CompletedBy == nil || *res.Task.CompletedBy != env.bob {
		t.Errorf("task = %+v, want completed by bob", res.Task.Task)
	}
	if res.TokensAwarded != 5 {
		t.Errorf("tokens awarded = %d, want 5", res.TokensAwarded)
	}

	entries, err := env.tokens.ListByMember(ctx, env.hh, env.bob, 0)
	if err != nil {
		t.Fatalf("list tokens: %v", err)
	}
	if len(entries) != 1 || entries[0].Amount != 5 {
		t.Fatalf("ledger = %+v, want one +5 entry", entries)
	}
	if entries[0].Link == nil || entries[0].Link.Type != model.TokenLinkTaskCompletion || entries[0].Link.ID != res.Completion.ID {
		t.Errorf("link = %+v, want task_completion %d", entries[0].Link, res.Completion.ID)
	}
	if got := env.entriesFor(t, model.ActionTaskCompleted); len(got) != 1 {
		t.Errorf("task_completed entries = %d, want 1", len(got))
	}

	// A second completion of a closed one-off task changes nothing.
	again, err := env.svc.Complete(ctx, env.hh, v.ID, env.bob)
	if err != nil {
		t.Fatalf("complete again: %v", err)
	}
	if !again.AlreadyCompleted {
		t.Error("expected already_completed on second completion")
	}
	balance, _ := env.tokens.Balance(ctx, env.hh, env.bob)
	if balance != 5 {
		t.Errorf("balance = %d, want 5", balance)
	}
}

func TestCompleteRotatingTask(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	v := env.create(t, CreateInput{
		Title:           "Dishes",
		Recurrence:      model.RecurrenceRepeating,
		Frequency:       model.FrequencyDaily,
		AssigneeIDs:     model.MemberIDs{env.alice, env.bob},
		RotationEnabled: true,
		TokenValue:      2,
	})

	res, err := env.svc.Complete(ctx, env.hh, v.ID, env.alice)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Task.RotationIndex != 1 {
		t.Errorf("rotation_index = %d, want 1", res.Task.RotationIndex)
	}
	if res.Task.Completed {
		t.Error("rotating task should stay open")
	}
	if !res.Rotated || *res.PreviousAssignee != env.alice || *res.NextAssignee != env.bob {
		t.Errorf("result = rotated %v prev %v next %v, want alice -> bob", res.Rotated, res.PreviousAssignee, res.NextAssignee)
	}
	if res.Task.CurrentAssignee == nil || *res.Task.CurrentAssignee != env.bob {
		t.Errorf("current assignee = %v, want bob", res.Task.CurrentAssignee)
	}
	if res.Task.Status != StatusPending {
		t.Errorf("status = %q, want pending for bob's turn", res.Task.Status)
	}
	got, err := env.svc.Get(ctx, env.hh, v.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusPending || got.LastCompletedAt == nil {
		t.Errorf("reloaded status = %q last = %v, want pending with a last completion", got.Status, got.LastCompletedAt)
	}

	if got := env.entriesFor(t, model.ActionTaskCompleted); len(got) != 1 {
		t.Errorf("task_completed entries = %d, want 1", len(got))
	}
	rotated := env.entriesFor(t, model.ActionTaskRotated)
	if len(rotated) != 1 {
		t.Fatalf("task_rotated entries = %d, want 1", len(rotated))
	}
	// metadata round-trips through JSON, so numbers come back as float64
	if rotated[0].Metadata["previous_assignee_id"] != float64(env.alice) || rotated[0].Metadata["next_assignee_id"] != float64(env.bob) {
		t.Errorf("rotation metadata = %v, want alice -> bob", rotated[0].Metadata)
	}

	// Tokens are awarded on every rotating cycle.
	balance, _ := env.tokens.Balance(ctx, env.hh, env.alice)
	if balance != 2 {
		t.Errorf("alice balance = %d, want 2", balance)
	}

	// Next cycle wraps back to alice.
	res, err = env.svc.Complete(ctx, env.hh, v.ID, env.bob)
	if err != nil {
		t.Fatalf("complete second cycle: %v", err)
	}
	if res.Task.RotationIndex != 0 {
		t.Errorf("rotation_index = %d, want 0 after wrap", res.Task.RotationIndex)
	}
}

func TestCompleteRotatingSkipsExcluded(t *testing.T) {
	env := setupEnv(t)

	v := env.create(t, CreateInput{
		Title:              "Laundry",
		Recurrence:         model.RecurrenceRepeating,
		Frequency:          model.FrequencyWeekly,
		AssigneeIDs:        model.MemberIDs{env.alice, env.bob, env.carol},
		RotationEnabled:    true,
		RotationExcludeIDs: model.MemberIDs{env.bob},
	})

	res, err := env.svc.Complete(context.Background(), env.hh, v.ID, env.alice)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Task.RotationIndex != 2 {
		t.Errorf("rotation_index = %d, want 2 (carol)", res.Task.RotationIndex)
	}
	if res.TokensAwarded != 0 {
		t.Errorf("tokens = %d, want 0 for a zero-value task", res.TokensAwarded)
	}
}

func TestCompleteRotatingFrozen(t *testing.T) {
	env := setupEnv(t)

	v := env.create(t, CreateInput{
		Title:              "Mow lawn",
		Recurrence:         model.RecurrenceRepeating,
		Frequency:          model.FrequencyWeekly,
		AssigneeIDs:        model.MemberIDs{env.alice, env.bob},
		RotationEnabled:    true,
		RotationExcludeIDs: model.MemberIDs{env.alice, env.bob},
	})

	res, err := env.svc.Complete(context.Background(), env.hh, v.ID, env.carol)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !res.RotationFrozen || res.Rotated {
		t.Errorf("frozen = %v rotated = %v, want frozen and not rotated", res.RotationFrozen, res.Rotated)
	}
	if res.Task.RotationIndex != 0 {
		t.Errorf("rotation_index = %d, want unchanged 0", res.Task.RotationIndex)
	}
	if got := env.entriesFor(t, model.ActionTaskRotated); len(got) != 0 {
		t.Errorf("task_rotated entries = %d, want 0", len(got))
	}
}

func TestCompleteCascadesSubtasks(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	v := env.create(t, CreateInput{Title: "Clean kitchen", AssigneeIDs: model.MemberIDs{env.alice}, TokenValue: 4})
	first, err := env.svc.CreateSubtask(ctx, env.hh, v.ID, "Counters", env.alice)
	if err != nil {
		t.Fatalf("create subtask: %v", err)
	}
	if _, err := env.svc.CreateSubtask(ctx, env.hh, v.ID, "Floor", env.alice); err != nil {
		t.Fatalf("create subtask: %v", err)
	}

	res, err := env.svc.Complete(ctx, env.hh, v.ID, env.alice)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(res.SubtasksCompleted) != 2 || res.SubtasksCompleted[0] != first.ID {
		t.Errorf("subtasks completed = %v, want both in order", res.SubtasksCompleted)
	}
	for _, st := range res.Task.Subtasks {
		if !st.Completed {
			t.Errorf("subtask %q not completed", st.Title)
		}
	}
	if got := env.entriesFor(t, model.ActionSubtaskCompleted); len(got) != 2 {
		t.Errorf("subtask_completed entries = %d, want 2", len(got))
	}

	actions := env.actions(t)
	last := actions[len(actions)-1]
	if last != model.ActionTaskCompleted {
		t.Errorf("last action = %s, want task_completed after the cascade", last)
	}

	// Subtasks never earn tokens.
	balance, _ := env.tokens.Balance(ctx, env.hh, env.alice)
	if balance != 4 {
		t.Errorf("balance = %d, want 4", balance)
	}
}

func TestCompleteLedgerFailureIsPartial(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.svc.ledger = failingLedger{}

	v := env.create(t, CreateInput{Title: "Walk dog", AssigneeIDs: model.MemberIDs{env.alice}, TokenValue: 3})

	_, err := env.svc.Complete(ctx, env.hh, v.ID, env.alice)
	var perr *apperr.PartialFailureError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want PartialFailureError", err)
	}
	if !strings.Contains(strings.Join(perr.Completed, ","), "task completed") {
		t.Errorf("completed steps = %v, want task completed", perr.Completed)
	}

	history, err := env.tasks.ListCompletionsByTask(ctx, env.hh, v.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].TokensAwarded != 0 {
		t.Errorf("history = %+v, want one row with 0 tokens", history)
	}
}

func TestCompleteRecorderFailureIsPartial(t *testing.T) {
	env := setupEnv(t)
	env.svc.recorder = failingRecorder{next: env.svc.recorder, action: model.ActionTaskCompleted}

	v := env.create(t, CreateInput{Title: "Feed cat", AssigneeIDs: model.MemberIDs{env.alice}, TokenValue: 1})

	_, err := env.svc.Complete(context.Background(), env.hh, v.ID, env.alice)
	var perr *apperr.PartialFailureError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want PartialFailureError", err)
	}
	if len(perr.Completed) != 3 {
		t.Errorf("completed steps = %v, want task, completion and award", perr.Completed)
	}
}

func TestCompleteNotFound(t *testing.T) {
	env := setupEnv(t)
	_, err := env.svc.Complete(context.Background(), env.hh, 999, env.alice)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRepeatingTaskReopensNextPeriod(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	v := env.create(t, CreateInput{
		Title:       "Water plants",
		Recurrence:  model.RecurrenceRepeating,
		Frequency:   model.FrequencyDaily,
		AssigneeIDs: model.MemberIDs{env.carol},
		TokenValue:  1,
	})

	if _, err := env.svc.Complete(ctx, env.hh, v.ID, env.carol); err != nil {
		t.Fatalf("complete day one: %v", err)
	}
	again, err := env.svc.Complete(ctx, env.hh, v.ID, env.carol)
	if err != nil {
		t.Fatalf("complete same day: %v", err)
	}
	if !again.AlreadyCompleted {
		t.Error("expected second completion on the same day to be a no-op")
	}

	env.clock = env.clock.AddDate(0, 0, 1)
	res, err := env.svc.Complete(ctx, env.hh, v.ID, env.carol)
	if err != nil {
		t.Fatalf("complete day two: %v", err)
	}
	if res.AlreadyCompleted || res.TokensAwarded != 1 {
		t.Errorf("result = %+v, want a fresh completion", res)
	}
	balance, _ := env.tokens.Balance(ctx, env.hh, env.carol)
	if balance != 2 {
		t.Errorf("balance = %d, want 2", balance)
	}
}

func TestUpdatePartialAndClamp(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	v := env.create(t, CreateInput{
		Title:           "Vacuum",
		Notes:           "upstairs too",
		Recurrence:      model.RecurrenceRepeating,
		Frequency:       model.FrequencyWeekly,
		AssigneeIDs:     model.MemberIDs{env.alice, env.bob, env.carol},
		RotationEnabled: true,
	})
	for i := 0; i < 2; i++ {
		if _, err := env.svc.AdvanceRotation(ctx, env.hh, v.ID, env.alice); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}

	shrunk := model.MemberIDs{env.alice, env.bob}
	updated, err := env.svc.Update(ctx, env.hh, v.ID, env.alice, Patch{AssigneeIDs: &shrunk})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.RotationIndex != 1 {
		t.Errorf("rotation_index = %d, want clamped to 1", updated.RotationIndex)
	}
	if updated.Notes != "upstairs too" || updated.Title != "Vacuum" {
		t.Errorf("unsupplied fields changed: %+v", updated.Task)
	}

	exclude := model.MemberIDs{env.bob}
	updated, err = env.svc.Update(ctx, env.hh, v.ID, env.alice, Patch{RotationExcludeIDs: &exclude})
	if err != nil {
		t.Fatalf("update exclude: %v", err)
	}
	if updated.RotationIndex != 0 {
		t.Errorf("rotation_index = %d, want 0 after excluding the current member", updated.RotationIndex)
	}

	edited := env.entriesFor(t, model.ActionTaskEdited)
	if len(edited) != 2 {
		t.Errorf("task_edited entries = %d, want 2", len(edited))
	}
}

func TestUpdateRejectsExcludeOutsideAssignees(t *testing.T) {
	env := setupEnv(t)
	v := env.create(t, CreateInput{
		Title:           "Cook",
		Recurrence:      model.RecurrenceRepeating,
		Frequency:       model.FrequencyDaily,
		AssigneeIDs:     model.MemberIDs{env.alice, env.bob},
		RotationEnabled: true,
	})

	exclude := model.MemberIDs{env.carol}
	_, err := env.svc.Update(context.Background(), env.hh, v.ID, env.alice, Patch{RotationExcludeIDs: &exclude})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestDeleteKeepsHistory(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	v := env.create(t, CreateInput{Title: "Windows", AssigneeIDs: model.MemberIDs{env.bob}, TokenValue: 6})
	if _, err := env.svc.CreateSubtask(ctx, env.hh, v.ID, "Inside", env.bob); err != nil {
		t.Fatalf("create subtask: %v", err)
	}
	if _, err := env.svc.Complete(ctx, env.hh, v.ID, env.bob); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if err := env.svc.Delete(ctx, env.hh, v.ID, env.bob); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.svc.Get(ctx, env.hh, v.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete err = %v, want ErrNotFound", err)
	}
	subs, _ := env.subtasks.ListByTask(ctx, env.hh, v.ID)
	if len(subs) != 0 {
		t.Errorf("subtasks = %d, want 0", len(subs))
	}
	balance, _ := env.tokens.Balance(ctx, env.hh, env.bob)
	if balance != 6 {
		t.Errorf("balance = %d, want 6 kept after delete", balance)
	}
	if got := env.entriesFor(t, model.ActionTaskCompleted); len(got) != 1 {
		t.Errorf("task_completed entries = %d, want 1 kept after delete", len(got))
	}
}

func TestReopen(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	v := env.create(t, CreateInput{Title: "Post letter", AssigneeIDs: model.MemberIDs{env.alice}})
	if _, err := env.svc.Reopen(ctx, env.hh, v.ID, env.alice); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("reopen open task err = %v, want ErrInvalidTransition", err)
	}
	if _, err := env.svc.Complete(ctx, env.hh, v.ID, env.alice); err != nil {
		t.Fatalf("complete: %v", err)
	}
	reopened, err := env.svc.Reopen(ctx, env.hh, v.ID, env.alice)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Completed {
		t.Error("expected task to be open after reopen")
	}
}

func TestAdvanceRotationSkip(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	v := env.create(t, CreateInput{
		Title:           "Bins",
		Recurrence:      model.RecurrenceRepeating,
		Frequency:       model.FrequencyWeekly,
		AssigneeIDs:     model.MemberIDs{env.alice, env.bob},
		RotationEnabled: true,
		TokenValue:      3,
	})

	res, err := env.svc.AdvanceRotation(ctx, env.hh, v.ID, env.alice)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !res.Rotated || res.Task.RotationIndex != 1 {
		t.Errorf("result = %+v, want rotated to 1", res)
	}
	rotated := env.entriesFor(t, model.ActionTaskRotated)
	if len(rotated) != 1 || rotated[0].Metadata["reason"] != "skipped" {
		t.Errorf("task_rotated = %+v, want one skipped entry", rotated)
	}
	history, _ := env.tasks.ListCompletionsByTask(ctx, env.hh, v.ID)
	if len(history) != 0 {
		t.Errorf("history = %d, want 0 for a skip", len(history))
	}
	balance, _ := env.tokens.Balance(ctx, env.hh, env.alice)
	if balance != 0 {
		t.Errorf("balance = %d, want 0 for a skip", balance)
	}

	once := env.create(t, CreateInput{Title: "Once", AssigneeIDs: model.MemberIDs{env.alice}})
	var verr *apperr.ValidationError
	if _, err := env.svc.AdvanceRotation(ctx, env.hh, once.ID, env.alice); !errors.As(err, &verr) {
		t.Errorf("advance non-rotating err = %v, want ValidationError", err)
	}
}

func TestPreviewRotation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	v := env.create(t, CreateInput{
		Title:              "Dinner",
		Recurrence:         model.RecurrenceRepeating,
		Frequency:          model.FrequencyDaily,
		AssigneeIDs:        model.MemberIDs{env.alice, env.bob, env.carol},
		RotationEnabled:    true,
		RotationExcludeIDs: model.MemberIDs{env.bob},
	})

	p, err := env.svc.PreviewRotation(ctx, env.hh, v.ID, 0)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	want := []int64{env.alice, env.carol, env.alice, env.carol, env.alice}
	if len(p.Upcoming) != len(want) {
		t.Fatalf("upcoming = %v, want %v", p.Upcoming, want)
	}
	for i := range want {
		if p.Upcoming[i] != want[i] {
			t.Errorf("upcoming[%d] = %d, want %d", i, p.Upcoming[i], want[i])
		}
	}

	// Preview does not move the rotation.
	got, _ := env.svc.Get(ctx, env.hh, v.ID)
	if got.RotationIndex != 0 {
		t.Errorf("rotation_index = %d, want 0", got.RotationIndex)
	}

	if _, err := env.svc.PreviewRotation(ctx, env.hh, v.ID, 21); err == nil {
		t.Error("expected error for n above the maximum")
	}
}

func TestListFilterByAssignee(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	env.create(t, CreateInput{
		Title:           "Rotating",
		Recurrence:      model.RecurrenceRepeating,
		Frequency:       model.FrequencyDaily,
		AssigneeIDs:     model.MemberIDs{env.alice, env.bob},
		RotationEnabled: true,
	})
	env.create(t, CreateInput{Title: "Shared", AssigneeIDs: model.MemberIDs{env.alice, env.bob}})

	forBob, err := env.svc.List(ctx, env.hh, ListFilter{AssigneeID: env.bob})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(forBob) != 1 || forBob[0].Title != "Shared" {
		t.Errorf("bob's tasks = %d, want only Shared while it is alice's turn", len(forBob))
	}

	all, err := env.svc.List(ctx, env.hh, ListFilter{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all tasks = %d, want 2", len(all))
	}
}

func TestSubtaskOperations(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	v := env.create(t, CreateInput{Title: "Bathroom", AssigneeIDs: model.MemberIDs{env.alice}})
	a, _ := env.svc.CreateSubtask(ctx, env.hh, v.ID, "Sink", env.alice)
	b, _ := env.svc.CreateSubtask(ctx, env.hh, v.ID, "Mirror", env.alice)

	if _, err := env.svc.ReorderSubtasks(ctx, env.hh, v.ID, []int64{b.ID}, env.alice); err == nil {
		t.Error("expected error when reorder omits a subtask")
	}
	if _, err := env.svc.ReorderSubtasks(ctx, env.hh, v.ID, []int64{b.ID, b.ID}, env.alice); err == nil {
		t.Error("expected error when reorder repeats a subtask")
	}
	ordered, err := env.svc.ReorderSubtasks(ctx, env.hh, v.ID, []int64{b.ID, a.ID}, env.alice)
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if ordered[0].ID != b.ID || ordered[0].OrderIndex != 0 || ordered[1].OrderIndex != 1 {
		t.Errorf("order = %+v, want Mirror then Sink", ordered)
	}

	if _, err := env.svc.CompleteSubtask(ctx, env.hh, a.ID, env.alice); err != nil {
		t.Fatalf("complete subtask: %v", err)
	}
	st, err := env.svc.CompleteSubtask(ctx, env.hh, a.ID, env.alice)
	if err != nil {
		t.Fatalf("complete subtask again: %v", err)
	}
	if !st.Completed {
		t.Error("expected subtask to stay completed")
	}
	if got := env.entriesFor(t, model.ActionSubtaskCompleted); len(got) != 1 {
		t.Errorf("subtask_completed entries = %d, want 1", len(got))
	}

	if err := env.svc.DeleteSubtask(ctx, env.hh, b.ID, env.alice); err != nil {
		t.Fatalf("delete subtask: %v", err)
	}
	left, _ := env.svc.ListSubtasks(ctx, env.hh, v.ID)
	if len(left) != 1 || left[0].OrderIndex != 0 {
		t.Errorf("remaining = %+v, want one subtask at index 0", left)
	}
}

func TestOtherHouseholdCannotReachTask(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	v := env.create(t, CreateInput{Title: "Vacuum", AssigneeIDs: model.MemberIDs{env.alice}, TokenValue: 3})

	if _, err := env.svc.Get(ctx, env.away, v.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get err = %v, want ErrNotFound", err)
	}
	title := "Hijacked"
	if _, err := env.svc.Update(ctx, env.away, v.ID, env.dana, Patch{Title: &title}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("update err = %v, want ErrNotFound", err)
	}
	if _, err := env.svc.Complete(ctx, env.away, v.ID, env.dana); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("complete err = %v, want ErrNotFound", err)
	}
	if err := env.svc.Delete(ctx, env.away, v.ID, env.dana); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("delete err = %v, want ErrNotFound", err)
	}

	got, err := env.svc.Get(ctx, env.hh, v.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Vacuum" || got.Completed {
		t.Errorf("task = %+v, want untouched", got.Task)
	}
	if balance, _ := env.tokens.Balance(ctx, env.away, env.dana); balance != 0 {
		t.Errorf("dana balance = %d, want 0", balance)
	}

	list, err := env.svc.List(ctx, env.away, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("other household tasks = %d, want 0", len(list))
	}

	// Members of one household cannot be assigned in another.
	_, err = env.svc.Create(ctx, env.away, CreateInput{Title: "Chop wood", AssigneeIDs: model.MemberIDs{env.alice}, CreatedBy: env.dana})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("create with foreign assignee err = %v, want ValidationError", err)
	}
}
