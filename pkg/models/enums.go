package models

import "slices"

type ServiceType string

const (
	ServiceWebDevelopment ServiceType = "web-development"
	ServiceMobileApps     ServiceType = "mobile-apps"
	ServiceCloudSolutions ServiceType = "cloud-solutions"
	ServiceAIIntegration  ServiceType = "ai-integration"
	ServiceBlockchain     ServiceType = "blockchain"
	ServiceUIUX           ServiceType = "ui-ux"
)

// ServiceTypes lists every accepted service type in display order.
var ServiceTypes = []ServiceType{
	ServiceWebDevelopment,
	ServiceMobileApps,
	ServiceCloudSolutions,
	ServiceAIIntegration,
	ServiceBlockchain,
	ServiceUIUX,
}

func (s ServiceType) Valid() bool { return slices.Contains(ServiceTypes, s) }

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

func (s Status) Valid() bool { return slices.Contains(Statuses, s) }

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool { return slices.Contains(Priorities, p) }
