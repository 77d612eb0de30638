package models

// Gender is the single canonical gender encoding used past the standardizer.
// The warehouse stores the short form; Display() gives the long form some
// downstream reports expect.
type Gender string

const (
	GenderMale        Gender = "M"
	GenderFemale      Gender = "F"
	GenderUnspecified Gender = "O"
)

func (g Gender) Display() string {
	switch g {
	case GenderMale:
		return "Masculino"
	case GenderFemale:
		return "Femenino"
	default:
		return "No especificado"
	}
}

// SourceSystem identifies the operational store a staged row came from.
type SourceSystem string

const (
	SourceMSSQL    SourceSystem = "MSSQL_SRC"
	SourceMySQL    SourceSystem = "MYSQL"
	SourceMongoDB  SourceSystem = "MONGODB"
	SourceNeo4j    SourceSystem = "NEO4J"
	SourceSupabase SourceSystem = "SUPABASE"
)

// Priority fixes the deduplication tie-break order. Lower wins.
// Unknown sources sort last so they never displace a known source's row.
func (s SourceSystem) Priority() int {
	switch s {
	case SourceMSSQL:
		return 0
	case SourceMySQL:
		return 1
	case SourceMongoDB:
		return 2
	case SourceNeo4j:
		return 3
	case SourceSupabase:
		return 4
	default:
		return 99
	}
}

func AllSourceSystems() []SourceSystem {
	return []SourceSystem{SourceMSSQL, SourceMySQL, SourceMongoDB, SourceNeo4j, SourceSupabase}
}

// RunStatus is the terminal/in-flight state of a consolidation run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusDone    RunStatus = "DONE"
	RunStatusFailed  RunStatus = "FAILED"
)

// RunStage names the orchestrator's pipeline stages, in execution order.
type RunStage string

const (
	StageIdle                RunStage = "Idle"
	StageValidateStaging     RunStage = "ValidateStaging"
	StageLoadDimensions      RunStage = "LoadDimensions"
	StageResolveKeys         RunStage = "ResolveKeys"
	StageConvertAndBuildFact RunStage = "ConvertAndBuildFacts"
	StageLoadFacts           RunStage = "LoadFacts"
	StageDone                RunStage = "Done"
)
