package model

import "time"

// User represents an account in the system.
type User struct {
	UserID         string     `json:"userId"`
	Email          string     `json:"email"`
	DisplayName    *string    `json:"displayName,omitempty"`
	TimeZone       string     `json:"timeZone"`
	Role           string     `json:"role"`
	Status         string     `json:"status"`
	CreationTime   time.Time  `json:"creationTime"`
	LastActiveTime *time.Time `json:"lastActiveTime,omitempty"`
}

// TimeBlockDefinition is one admin-authored time block inside a TemplateSet.
type TimeBlockDefinition struct {
	BlockID string `json:"blockId"`
	Time    string `json:"time"`
	Label   string `json:"label"`
	Order   int    `json:"order"`
}

// ChecklistItemDefinition is one item inside a checklist definition.
type ChecklistItemDefinition struct {
	ItemID string `json:"itemId"`
	Text   string `json:"text"`
	Order  int    `json:"order"`
}

// ChecklistDefinition is an admin-authored checklist inside a TemplateSet.
// ItemsOrder is the authoritative display order; the numeric Order fields
// must sort to the same sequence.
type ChecklistDefinition struct {
	ChecklistID string                    `json:"checklistId"`
	Title       string                    `json:"title"`
	Items       []ChecklistItemDefinition `json:"items"`
	ItemsOrder  []string                  `json:"itemsOrder"`
	Order       int                       `json:"order"`
}

// TemplateSet is a role-scoped, versioned catalog of time blocks and
// checklists. At most one version per role is active at a time.
type TemplateSet struct {
	Role         string                `json:"role"`
	Version      int                   `json:"version"`
	IsActive     bool                  `json:"isActive"`
	TimeBlocks   []TimeBlockDefinition `json:"timeBlocks"`
	Checklists   []ChecklistDefinition `json:"checklists"`
	CreationTime time.Time             `json:"creationTime"`
}

// TimeBlockCompletion records a completed time block for a day. BlockIndex,
// TimezoneOffsetMinutes and LocalTimeUsed are denormalized audit fields
// computed by the assignment engine at write time.
type TimeBlockCompletion struct {
	BlockID               string    `json:"blockId"`
	CompletedAt           time.Time `json:"completedAt"`
	BlockIndex            int       `json:"blockIndex"`
	TimezoneOffsetMinutes int       `json:"timezoneOffsetMinutes"`
	LocalTimeUsed         string    `json:"localTimeUsed"`
	Notes                 []string  `json:"notes,omitempty"`
}

// ItemCompletion records one completed checklist item.
type ItemCompletion struct {
	ItemID      string    `json:"itemId"`
	Text        string    `json:"text,omitempty"`
	CompletedAt time.Time `json:"completedAt"`
}

// ChecklistCompletion groups the completed items of one checklist for a day.
// CompletedAt tracks the most recent first-time item completion.
type ChecklistCompletion struct {
	ChecklistID string           `json:"checklistId"`
	Items       []ItemCompletion `json:"items"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	Notes       string           `json:"notes,omitempty"`
}

// TodoItem is a user-authored todo entry on a day.
type TodoItem struct {
	ItemID      string     `json:"itemId"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	DueDate     *string    `json:"dueDate,omitempty"`
}

// DayRecord holds everything a user did on one local calendar date.
// Unique on (UserID, Date); created lazily on first write.
type DayRecord struct {
	UserID               string                          `json:"userId"`
	Date                 string                          `json:"date"`
	WakeTime             *string                         `json:"wakeTime,omitempty"`
	UserTimezone         string                          `json:"userTimezone"`
	TimeBlockCompletions []TimeBlockCompletion           `json:"timeBlockCompletions"`
	// BlockNotes keys note lists by block id. Notes may exist for blocks
	// that have no completion entry yet.
	BlockNotes           map[string][]string             `json:"blockNotes,omitempty"`
	ChecklistCompletions map[string]*ChecklistCompletion `json:"checklistCompletions"`
	TodoList             []TodoItem                      `json:"todoList"`
	CreationTime         time.Time                       `json:"creationTime"`
}

// MergedTimeBlock is a template time block joined with its completion state.
type MergedTimeBlock struct {
	BlockID     string     `json:"blockId"`
	Time        string     `json:"time"`
	Label       string     `json:"label"`
	Order       int        `json:"order"`
	Complete    bool       `json:"complete"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Notes       []string   `json:"notes"`
}

// MergedChecklistItem is a template checklist item joined with completion state.
type MergedChecklistItem struct {
	ItemID      string     `json:"itemId"`
	Text        string     `json:"text"`
	Order       int        `json:"order"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// MergedChecklist is a template checklist joined with completion state.
type MergedChecklist struct {
	ChecklistID string                `json:"checklistId"`
	Title       string                `json:"title"`
	Order       int                   `json:"order"`
	Items       []MergedChecklistItem `json:"items"`
	CompletedAt *time.Time            `json:"completedAt,omitempty"`
	Notes       string                `json:"notes,omitempty"`
}

// MergedDayView is the read model served to clients: the active TemplateSet
// for the user's role merged with the user's DayRecord for one date.
type MergedDayView struct {
	UserID     string            `json:"userId"`
	Date       string            `json:"date"`
	Role       string            `json:"role"`
	WakeTime   *string           `json:"wakeTime,omitempty"`
	TimeBlocks []MergedTimeBlock `json:"timeBlocks"`
	Checklists []MergedChecklist `json:"checklists"`
	TodoList   []TodoItem        `json:"todoList"`
}
