package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// LearnerSessionKey returns the cache key for a learner's login session.
func (r *CacheKeyStruct) LearnerSessionKey(learnerID int) string {
	return fmt.Sprintf("login:%d", learnerID)
}

// AttemptOpenedKey returns the cache key for an attempt's server-recorded
// open timestamp. The session clock is anchored to this value.
func (r *CacheKeyStruct) AttemptOpenedKey(assessmentID string, learnerID int) string {
	return fmt.Sprintf("learner:%d:assessment:%s:opened_at", learnerID, assessmentID)
}

// AttemptExtensionKey returns the cache key for an attempt's granted
// extension minutes.
func (r *CacheKeyStruct) AttemptExtensionKey(assessmentID string, learnerID int) string {
	return fmt.Sprintf("learner:%d:assessment:%s:extension", learnerID, assessmentID)
}

// AttemptDraftsKey returns the cache key for a learner's draft answers hash.
func (r *CacheKeyStruct) AttemptDraftsKey(assessmentID string, learnerID int) string {
	return fmt.Sprintf("learner:%d:assessment:%s:drafts", learnerID, assessmentID)
}

// AssessmentPayloadKey returns the cache key for an assessment's learner payload.
func (r *CacheKeyStruct) AssessmentPayloadKey(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:payload", assessmentID)
}

// AssessmentDurationKey returns the cache key for an assessment's base duration.
func (r *CacheKeyStruct) AssessmentDurationKey(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:duration", assessmentID)
}

var CacheKey = NewCacheKeyStruct()
