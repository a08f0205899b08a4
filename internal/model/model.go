package model

import (
	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/messages"
)

// Alias per esporre tipi comuni ai servizi

type (
	Category       = entities.Category
	ResourceRecord = entities.ResourceRecord
	Elevator       = entities.Elevator
	Destination    = entities.Destination
	ScoredElevator = entities.ScoredElevator
	CommuteReading = entities.CommuteReading
	Classroom      = entities.Classroom
	Snapshot       = entities.Snapshot
	User           = entities.User

	RecommendationEvent = messages.RecommendationEvent
	UtteranceEvent      = messages.UtteranceEvent
	AssistantReplyEvent = messages.AssistantReplyEvent
)

const (
	CategoryParking     = entities.CategoryParking
	CategoryLibrary     = entities.CategoryLibrary
	CategoryFood        = entities.CategoryFood
	CategoryElevator    = entities.CategoryElevator
	CategoryDestination = entities.CategoryDestination
	CategoryCommute     = entities.CategoryCommute
	CategoryClassroom   = entities.CategoryClassroom
)
