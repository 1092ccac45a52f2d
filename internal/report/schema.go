// Package report reads the simulator's SQL and HTML output artifacts into
// in-memory tabular form (arrow records).
package report

import "sort"

// TableSchema describes how one SQL report table is shaped: its primary-key
// column and any columns holding date-like text that should surface as
// timestamps.
type TableSchema struct {
	PrimaryKey string
	// TimeColumns maps column name to its Go time layout.
	TimeColumns map[string]string
}

// peakLayout is the simulator's "%m/%d %H:%M:%S" peak-time stamp.
const peakLayout = "01/02 15:04:05"

// Schema is the static description of the report tables the simulator
// writes to its SQL artifact.
var Schema = map[string]TableSchema{
	"ComponentSizes":           {PrimaryKey: "ComponentSizesIndex"},
	"ConstructionLayers":       {PrimaryKey: "ConstructionLayersIndex"},
	"Constructions":            {PrimaryKey: "ConstructionIndex"},
	"EnvironmentPeriods":       {PrimaryKey: "EnvironmentPeriodIndex"},
	"Materials":                {PrimaryKey: "MaterialIndex"},
	"NominalBaseboardHeaters":  {PrimaryKey: "NominalBaseboardHeaterIndex"},
	"NominalElectricEquipment": {PrimaryKey: "NominalElectricEquipmentIndex"},
	"NominalGasEquipment":      {PrimaryKey: "NominalGasEquipmentIndex"},
	"NominalInfiltration":      {PrimaryKey: "NominalInfiltrationIndex"},
	"NominalLighting":          {PrimaryKey: "NominalLightingIndex"},
	"NominalOtherEquipment":    {PrimaryKey: "NominalOtherEquipmentIndex"},
	"NominalPeople":            {PrimaryKey: "NominalPeopleIndex"},
	"NominalVentilation":       {PrimaryKey: "NominalVentilationIndex"},
	"ReportData":               {PrimaryKey: "ReportDataIndex"},
	"ReportDataDictionary":     {PrimaryKey: "ReportDataDictionaryIndex"},
	"ReportExtendedData":       {PrimaryKey: "ReportExtendedDataIndex"},
	"Schedules":                {PrimaryKey: "ScheduleIndex"},
	"Surfaces":                 {PrimaryKey: "SurfaceIndex"},
	"SystemSizes":              {TimeColumns: map[string]string{"PeakHrMin": peakLayout}},
	"Time":                     {PrimaryKey: "TimeIndex"},
	"ZoneGroups":               {PrimaryKey: "ZoneGroupIndex"},
	"ZoneInfoZoneLists":        {PrimaryKey: "ZoneListIndex"},
	"ZoneLists":                {PrimaryKey: "ZoneListIndex"},
	"ZoneSizes":                {TimeColumns: map[string]string{"PeakHrMin": peakLayout}},
	"Zones":                    {PrimaryKey: "ZoneIndex"},
}

// TableNames returns the known report table names in sorted order.
func TableNames() []string {
	names := make([]string, 0, len(Schema))
	for name := range Schema {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
