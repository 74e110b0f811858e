package store

import (
	"time"

	"siteops-backend/internal/models"
)

// Seed data returned for any collection that was never written. Timestamps
// are taken from now so a fresh site always looks current.

func iso(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func coord(x, y float64, zone string) *models.Coordinate {
	return &models.Coordinate{X: x, Y: y, Zone: zone}
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func DefaultSiteLocations(_ time.Time) []models.Location {
	return []models.Location{
		{Name: "Construction Zone A", Coordinates: models.Coordinate{X: 100, Y: 200, Zone: "north"}, Type: models.LocationTypeConstruction},
		{Name: "Construction Zone B", Coordinates: models.Coordinate{X: 300, Y: 150, Zone: "east"}, Type: models.LocationTypeConstruction},
		{Name: "Construction Zone C", Coordinates: models.Coordinate{X: 250, Y: 350, Zone: "south"}, Type: models.LocationTypeConstruction},
		{Name: "Material Storage", Coordinates: models.Coordinate{X: 50, Y: 100, Zone: "west"}, Type: models.LocationTypeStorage},
		{Name: "Equipment Storage", Coordinates: models.Coordinate{X: 400, Y: 100, Zone: "east"}, Type: models.LocationTypeStorage},
		{Name: "Main Office", Coordinates: models.Coordinate{X: 200, Y: 50, Zone: "central"}, Type: models.LocationTypeOffice},
		{Name: "Maintenance Bay", Coordinates: models.Coordinate{X: 150, Y: 400, Zone: "south"}, Type: models.LocationTypeMaintenance},
		{Name: "Parking Area", Coordinates: models.Coordinate{X: 350, Y: 400, Zone: "south"}, Type: models.LocationTypeParking},
		{Name: "Loading Dock", Coordinates: models.Coordinate{X: 75, Y: 300, Zone: "west"}, Type: models.LocationTypeStorage},
		{Name: "Safety Station", Coordinates: models.Coordinate{X: 200, Y: 100, Zone: "central"}, Type: models.LocationTypeOffice},
	}
}

func DefaultOperators(now time.Time) []models.Operator {
	ts := iso(now)
	return []models.Operator{
		{
			ID: 1, Name: "John Smith", Email: "john.smith@company.com",
			Role: models.RoleOperator, Shift: "day", Status: models.OperatorActive,
			CurrentMachine: "CAT 336F Excavator", PerformanceScore: 85, HoursWorked: 6.5, TasksCompleted: 3,
			CurrentLocation: coord(105, 195, "north"), LastLocationUpdate: ts,
		},
		{
			ID: 2, Name: "Sarah Johnson", Email: "sarah.johnson@company.com",
			Role: models.RoleOperator, Shift: "day", Status: models.OperatorActive,
			CurrentMachine: "CAT D6T Bulldozer", PerformanceScore: 92, HoursWorked: 7.2, TasksCompleted: 4,
			CurrentLocation: coord(295, 145, "east"), LastLocationUpdate: ts,
		},
		{
			ID: 3, Name: "Mike Wilson", Email: "mike.wilson@company.com",
			Role: models.RoleOperator, Shift: "day", Status: models.OperatorBreak,
			CurrentMachine: "CAT 950M Loader", PerformanceScore: 78, HoursWorked: 5.8, TasksCompleted: 2,
			CurrentLocation: coord(200, 55, "central"), LastLocationUpdate: ts,
		},
		{
			ID: 4, Name: "Lisa Chen", Email: "lisa.chen@company.com",
			Role: models.RoleSupervisor, Shift: "day", Status: models.OperatorActive,
			PerformanceScore: 95, HoursWorked: 8.0, TasksCompleted: 6,
			CurrentLocation: coord(205, 48, "central"), LastLocationUpdate: ts,
		},
	}
}

func DefaultTasks(now time.Time) []models.Task {
	ts := iso(now)
	return []models.Task{
		{
			ID: 1, Title: "Excavate Foundation Site A",
			Description:      "Dig foundation for new building structure according to specifications",
			AssignedOperator: "John Smith", Machine: "CAT 336F Excavator",
			Status: models.TaskInProgress, Priority: models.PriorityHigh,
			EstimatedDuration: 8, ActualDuration: floatPtr(6), StartTime: "08:00",
			Location: "Construction Zone A", LocationCoordinates: models.Coordinate{X: 100, Y: 200, Zone: "north"},
			Progress: 75, DueDate: ts, CreatedAt: ts,
			ProgressHistory: []models.ProgressEntry{{
				Timestamp: ts, Progress: intPtr(75), Status: models.TaskInProgress,
				Notes: "Making good progress on excavation", UpdatedBy: "John Smith",
				User: "John Smith", Action: models.ActionProgressUpdate,
			}},
			TimeSpent: 360, LastUpdated: ts,
		},
		{
			ID: 2, Title: "Level Ground Zone B",
			Description:      "Use bulldozer to level terrain for construction preparation",
			AssignedOperator: "Sarah Johnson", Machine: "CAT D6T Bulldozer",
			Status: models.TaskPending, Priority: models.PriorityMedium,
			EstimatedDuration: 6, StartTime: "09:00",
			Location: "Construction Zone B", LocationCoordinates: models.Coordinate{X: 300, Y: 150, Zone: "east"},
			DueDate: iso(now.Add(24 * time.Hour)), CreatedAt: ts,
			ProgressHistory: []models.ProgressEntry{}, LastUpdated: ts,
		},
		{
			ID: 3, Title: "Transport Materials",
			Description:      "Move construction materials from storage to Zone C",
			AssignedOperator: "Mike Wilson", Machine: "CAT 950M Loader",
			Status: models.TaskPending, Priority: models.PriorityHigh,
			EstimatedDuration: 4,
			Location:          "Material Storage", LocationCoordinates: models.Coordinate{X: 50, Y: 100, Zone: "west"},
			DueDate: iso(now.Add(12 * time.Hour)), CreatedAt: ts,
			ProgressHistory: []models.ProgressEntry{}, LastUpdated: ts,
		},
		{
			ID: 4, Title: "Equipment Maintenance Check",
			Description:      "Perform routine maintenance on loader equipment",
			AssignedOperator: "Lisa Chen", Machine: "CAT 950M Loader",
			Status: models.TaskPending, Priority: models.PriorityMedium,
			EstimatedDuration: 3,
			Location:          "Maintenance Bay", LocationCoordinates: models.Coordinate{X: 150, Y: 400, Zone: "south"},
			DueDate: iso(now.Add(48 * time.Hour)), CreatedAt: ts,
			ProgressHistory: []models.ProgressEntry{}, LastUpdated: ts,
		},
	}
}

func DefaultMachines(now time.Time) []models.Machine {
	ts := iso(now)
	return []models.Machine{
		{
			ID: 1, Model: "CAT 336F Excavator", Type: models.MachineExcavator, SerialNumber: "CAT336F-2024-001",
			Status: models.MachineActive, Operator: "John Smith", FuelLevel: 85, HoursOperated: 1250,
			Location: "Construction Zone A", LocationCoordinates: coord(100, 200, "north"),
			LastMaintenance: "2024-01-15", NextMaintenance: "2024-02-15", LastLocationUpdate: ts,
		},
		{
			ID: 2, Model: "CAT D6T Bulldozer", Type: models.MachineBulldozer, SerialNumber: "CATD6T-2024-002",
			Status: models.MachineActive, Operator: "Sarah Johnson", FuelLevel: 72, HoursOperated: 980,
			Location: "Construction Zone B", LocationCoordinates: coord(300, 150, "east"),
			LastMaintenance: "2024-01-10", NextMaintenance: "2024-02-10", LastLocationUpdate: ts,
		},
		{
			ID: 3, Model: "CAT 950M Loader", Type: models.MachineLoader, SerialNumber: "CAT950M-2024-003",
			Status: models.MachineIdle, Operator: "Mike Wilson", FuelLevel: 95, HoursOperated: 756,
			Location: "Parking Area", LocationCoordinates: coord(350, 400, "south"),
			LastMaintenance: "2024-01-20", NextMaintenance: "2024-02-20", LastLocationUpdate: ts,
		},
		{
			ID: 4, Model: "CAT 320 Excavator", Type: models.MachineExcavator, SerialNumber: "CAT320-2024-004",
			Status: models.MachineMaintenance, FuelLevel: 60, HoursOperated: 1450,
			Location: "Maintenance Bay", LocationCoordinates: coord(150, 400, "south"),
			LastMaintenance: "2024-01-28", NextMaintenance: "2024-02-28", LastLocationUpdate: ts,
		},
	}
}

func DefaultSafetyIncidents(_ time.Time) []models.SafetyIncident {
	return []models.SafetyIncident{
		{
			ID: 1, Type: "near-miss",
			Description: "Pedestrian walked too close to excavator during operation",
			Operator:    "John Smith", Machine: "CAT 336F Excavator",
			Location: "Construction Zone A", LocationCoordinates: models.Coordinate{X: 100, Y: 200, Zone: "north"},
			Timestamp: "2024-01-28 14:30:00", Status: "resolved", Severity: 2,
		},
		{
			ID: 2, Type: "minor",
			Description: "Small hydraulic fluid leak detected on bulldozer",
			Operator:    "Sarah Johnson", Machine: "CAT D6T Bulldozer",
			Location: "Construction Zone B", LocationCoordinates: models.Coordinate{X: 300, Y: 150, Zone: "east"},
			Timestamp: "2024-01-27 11:15:00", Status: "investigating", Severity: 1,
		},
	}
}
