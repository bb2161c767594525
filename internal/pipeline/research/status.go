package research

// Status describes what the research service can do with the configured credentials.
type Status struct {
	Status             string `json:"status"`
	LLMAvailable       bool   `json:"llm_available"`
	WebSearchAvailable bool   `json:"web_search_available"`
	Message            string `json:"message"`
}

func Availability(hasLLM, hasSearch bool) Status {
	st := Status{
		Status:             "degraded",
		LLMAvailable:       hasLLM,
		WebSearchAvailable: hasSearch,
		Message:            "Service unavailable - no AI provider configured",
	}
	if hasLLM {
		st.Status = "operational"
		st.Message = "Limited functionality - using AI knowledge only"
		if hasSearch {
			st.Message = "Full functionality"
		}
	}
	return st
}
