package llm

const promptCleanDescription = "You are a librarian tidying catalog copy. Rewrite the book " +
	"description you are given as one or two plain paragraphs. Remove marketing blurbs, review " +
	"quotes, award lists, series advertisements, and HTML. Keep only what the book is about. " +
	"Respond with the cleaned description and nothing else."

const promptTagInference = "You are a librarian classifying a book from its description. " +
	"Respond with a single JSON object whose keys are tag fields (for example Genre, Mood, Mode, " +
	"Romance) and whose values are short strings, or lists of short strings when more than one " +
	"applies. Romance must be a number between 0 and 1. You may include a \"reasoning\" key " +
	"explaining your choices. Respond with the JSON object and nothing else."

const promptTagInferenceGenre = "You are a librarian classifying a book from its description. " +
	"Pick the single genre that best fits. Respond with a JSON object of the form " +
	"{\"Genre\": \"...\"} and nothing else."

const promptTagInferenceMood = "You are a librarian classifying a book from its description. " +
	"Pick the single mood that best describes the reading experience. Respond with a JSON object " +
	"of the form {\"Mood\": \"...\"} and nothing else."

const promptTagInferenceMode = "You are a librarian classifying a book from its description. " +
	"Decide whether the book is fiction or nonfiction. Respond with a JSON object of the form " +
	"{\"Mode\": \"fiction\"} or {\"Mode\": \"nonfiction\"} and nothing else."

const promptTagInferenceRomance = "You are a librarian classifying a book from its description. " +
	"Score how central romance is to the story from 0 (none) to 1 (the main plot). Respond with a " +
	"JSON object of the form {\"Romance\": 0.5} and nothing else."
