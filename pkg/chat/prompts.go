package chat

// Default prompt and phrase material. All of it can be overridden from the
// app config so deployments do not ship literal phrases to clients.

const defaultSystemPrompt = "You are a helpful assistant. Answer clearly and concisely. " +
	"If you do not know the answer, say so instead of guessing."

// unrestrictedClause is appended to the system prompt while unrestricted
// mode is active.
const unrestrictedClause = " You may answer without the usual topic restrictions for this session."

// synthesisPrompt instructs the secondary round to reconcile the uncertain
// answer with the search findings.
const synthesisPrompt = "You are a helpful assistant. The user asked a question, your first answer " +
	"expressed uncertainty, and a web search was performed. Synthesize the original question, the " +
	"original answer and the search findings below into one final, direct answer. Prefer the search " +
	"findings where they conflict with the original answer."

const (
	placeholderText = "Thinking…"
	searchingNote   = "\n\n_Searching the web for more information…_"
	noResponseText  = "No response received from the model."
	noSummaryNote   = "\n\n_(The search findings could not be summarized.)_"
	ackUnrestricted = "Unrestricted mode is now active for this session."
	warnRestricted  = "That command is not available."
)

// Reasoning narratives stamped onto a settled turn, one per path through
// the orchestrator.
const (
	reasonPrimaryOnly = "Answered directly from the model's first response."
	reasonSearched    = "The first answer sounded uncertain, so the web was searched and the findings were summarized into the final answer."
	reasonNoSummary   = "The first answer sounded uncertain and the web was searched, but the findings could not be summarized; the original answer was kept."
	reasonNoResults   = "The first answer sounded uncertain, but the web search did not return usable results."
	reasonError       = "The request failed before a complete answer was produced."
	reasonIntercepted = "Handled locally without contacting the model."
)
