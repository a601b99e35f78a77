package http

type statusReq struct {
	Status string `json:"status"`
}

type assignReq struct {
	ExpertID *int64 `json:"expert_id"` // null un-assigns
}

type bulkAssignReq struct {
	ApplicationIDs []int64 `json:"application_ids"`
	ExpertID       int64   `json:"expert_id"`
}

type noteReq struct {
	Text     string `json:"text"`
	Internal *bool  `json:"is_internal"` // defaults to true
}
