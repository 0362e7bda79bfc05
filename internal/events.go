package internal

import "github.com/chrisconley/gareport/internal/infra"

type QueryStartedEvent struct {
	QueryID string
	Request RequestConfiguration
}

func (e QueryStartedEvent) EventType() infra.EventType {
	return infra.QueryStarted
}

type PageFetchedEvent struct {
	QueryID       string
	Page          int
	Cursor        int
	Rows          int
	MoreAvailable bool
	Sampled       bool
}

func (e PageFetchedEvent) EventType() infra.EventType {
	return infra.PageFetched
}

type QuerySucceededEvent struct {
	QueryID string
	Rows    int
	Pages   int
	Sampled bool
}

func (e QuerySucceededEvent) EventType() infra.EventType {
	return infra.QuerySucceeded
}

type QueryFailedEvent struct {
	QueryID string
	Err     *QueryError
}

func (e QueryFailedEvent) EventType() infra.EventType {
	return infra.QueryFailed
}
