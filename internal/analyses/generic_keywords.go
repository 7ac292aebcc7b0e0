package analyses

// DefaultGenericKeywords is the best-practice keyword baseline used when no
// job target is supplied. Terms are matched after normalization, so plural
// forms in resumes fold onto these entries.
func DefaultGenericKeywords() []string {
	return []string{
		// Action verbs hiring managers scan for.
		"led", "managed", "implemented", "designed", "developed", "built",
		"launched", "delivered", "optimized", "improved", "reduced",
		"increased", "automated", "migrated", "mentored", "negotiated",
		"analyzed", "streamlined", "coordinated", "achieved",

		// Soft skills.
		"leadership", "communication", "collaboration", "teamwork",
		"problem-solving", "stakeholder", "ownership", "initiative",
		"cross-functional", "prioritization",

		// Delivery and process vocabulary.
		"agile", "scrum", "kanban", "roadmap", "budget", "deadline",
		"metric", "kpi", "revenue", "cost", "efficiency", "quality",
		"strategy", "planning", "reporting", "forecasting",

		// Common technical baseline.
		"python", "java", "javascript", "sql", "aws", "cloud", "api",
		"database", "testing", "security", "deployment", "monitoring",
	}
}
