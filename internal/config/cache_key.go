package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// SubmissionStartKey returns the cache key for the authoritative start
// instant of a student's submission
func (r *CacheKeyStruct) SubmissionStartKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:start", studentID, examID)
}

// SubmissionAnswersKey returns the cache key for a student's autosaved answers
func (r *CacheKeyStruct) SubmissionAnswersKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:answers", studentID, examID)
}

// SubmissionOrderKey returns the cache key for a student's presented
// question and option order
func (r *CacheKeyStruct) SubmissionOrderKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:order", studentID, examID)
}

// ExamPayloadKey returns the cache key for an exam's full payload
func (r *CacheKeyStruct) ExamPayloadKey(examID string) string {
	return fmt.Sprintf("exam:%s:payload", examID)
}

// ExamQuestionsKey returns the cache key for an exam's question list
func (r *CacheKeyStruct) ExamQuestionsKey(examID string) string {
	return fmt.Sprintf("exam:%s:questions", examID)
}

var CacheKey = NewCacheKeyStruct()
