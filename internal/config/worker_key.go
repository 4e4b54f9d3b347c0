package config

type WorkerKeyStruct struct {
	PersistDraftsQueue      string
	PersistEvaluationsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistDraftsQueue:      "persist_drafts_queue",
	PersistEvaluationsQueue: "persist_evaluations_queue",
}
