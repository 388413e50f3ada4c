package jobs

type ListJobsQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Status *string `query:"status" json:"status,omitempty" validate:"omitempty,oneof=queued running completed failed cancelled"`
}

type ListEventsQuery struct {
	AfterID *int `query:"after_id" json:"after_id,omitempty" validate:"omitempty,min=0"`
	Limit   *int `query:"limit" json:"limit,omitempty" validate:"omitempty,min=1,max=1000"`
}

type StreamJobQuery struct {
	AfterEventID *int `query:"after_event_id" json:"after_event_id,omitempty" validate:"omitempty,min=0"`
}
