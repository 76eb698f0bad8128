package model

import "time"

type ActionType string

const (
	ActionTaskCreated      ActionType = "task_created"
	ActionTaskEdited       ActionType = "task_edited"
	ActionTaskDeleted      ActionType = "task_deleted"
	ActionTaskCompleted    ActionType = "task_completed"
	ActionTaskReopened     ActionType = "task_reopened"
	ActionTaskRotated      ActionType = "task_rotated"
	ActionSubtaskCreated   ActionType = "subtask_created"
	ActionSubtaskEdited    ActionType = "subtask_edited"
	ActionSubtaskDeleted   ActionType = "subtask_deleted"
	ActionSubtaskCompleted ActionType = "subtask_completed"
	ActionSubtaskReordered ActionType = "subtask_reordered"
	ActionEventCreated     ActionType = "event_created"
	ActionEventEdited      ActionType = "event_edited"
	ActionEventDeleted     ActionType = "event_deleted"
	ActionRewardCreated    ActionType = "reward_created"
	ActionRewardEdited     ActionType = "reward_edited"
	ActionRewardDeleted    ActionType = "reward_deleted"
	ActionRewardRedeemed   ActionType = "reward_redeemed"
	ActionClaimUpdated     ActionType = "claim_updated"
	ActionMemberCreated    ActionType = "member_created"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionTaskCreated, ActionTaskEdited, ActionTaskDeleted, ActionTaskCompleted,
		ActionTaskReopened, ActionTaskRotated,
		ActionSubtaskCreated, ActionSubtaskEdited, ActionSubtaskDeleted, ActionSubtaskCompleted,
		ActionSubtaskReordered,
		ActionEventCreated, ActionEventEdited, ActionEventDeleted,
		ActionRewardCreated, ActionRewardEdited, ActionRewardDeleted, ActionRewardRedeemed,
		ActionClaimUpdated, ActionMemberCreated:
		return true
	}
	return false
}

type EntityType string

const (
	EntityTask    EntityType = "task"
	EntitySubtask EntityType = "subtask"
	EntityEvent   EntityType = "event"
	EntityReward  EntityType = "reward"
	EntityClaim   EntityType = "reward_claim"
	EntityMember  EntityType = "member"
)

// ActivityEntry is an immutable audit record. Metadata carries at least a
// human-readable "title" where the entity has one.
type ActivityEntry struct {
	ID          int64          `json:"id"`
	HouseholdID int64          `json:"household_id"`
	ActorID     int64          `json:"actor_id"`
	Action      ActionType     `json:"action"`
	EntityType  EntityType     `json:"entity_type"`
	EntityID    int64          `json:"entity_id"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
}
