package domain

import "strings"

// RoleForID derives the account role from the ID prefix (STUDENT... or TEACHER...).
func RoleForID(id string) (Role, bool) {
	switch {
	case strings.HasPrefix(id, string(RoleStudent)):
		return RoleStudent, true
	case strings.HasPrefix(id, string(RoleTeacher)):
		return RoleTeacher, true
	}
	return "", false
}

// DefaultSections is used for teacher-created activities that do not list their own.
func DefaultSections() []Section {
	return []Section{
		{ID: "video", Title: "Introduction Video", Reward: 5},
		{ID: "activity", Title: "Hands-on Build", Reward: 10},
		{ID: "quiz", Title: "Knowledge Quiz", Reward: 15},
		{ID: "puzzle", Title: "Puzzle", Reward: 20},
	}
}

// BuiltinActivities returns the activities shipped with the service.
func BuiltinActivities() []Activity {
	return []Activity{
		{
			ID:          "circuit",
			Title:       "Simple Electric Circuit",
			Description: "Build a circuit with a battery, a switch and an LED.",
			Emoji:       "⚡",
			Difficulty:  "Easy",
			Duration:    "20 min",
			Path:        "/activity/circuit",
			Sections: []Section{
				{ID: "intro", Title: "Introduction"},
				{ID: "circuit", Title: "Build the Circuit", Reward: 3, Score: 25},
				{ID: "activity", Title: "Interactive Activity", Reward: 5, ScoreFromPayload: true},
				{ID: "puzzle", Title: "Find the Missing Connection", Reward: 7, Score: 100, CorrectAnswer: "switch"},
				{ID: "complete", Title: "Complete"},
			},
		},
		{
			ID:          "motor",
			Title:       "Build a Motor",
			Description: "Connect a battery and coil, add magnets and make a fan spin.",
			Emoji:       "🌪️",
			Difficulty:  "Medium",
			Duration:    "30 min",
			Path:        "/activity/motor",
			Sections: []Section{
				{ID: "video", Title: "Meet Robo!", Reward: 5},
				{ID: "battery", Title: "Connect Battery & Coil", Reward: 10},
				{ID: "speed", Title: "Control Speed", Reward: 15},
				{ID: "magnets", Title: "Add Magnets", Reward: 20},
				{ID: "fan", Title: "Create Fan", Reward: 25},
				{ID: "quiz", Title: "Knowledge Quest", Reward: 30},
				{ID: "challenge", Title: "Speed Challenge", Reward: 35},
			},
		},
		{
			ID:          "traffic",
			Title:       "Traffic Light Automation",
			Description: "Automate a traffic light sequence.",
			Emoji:       "🚦",
			Difficulty:  "Medium",
			Duration:    "25 min",
			Path:        "/activity/traffic",
			Sections: []Section{
				{ID: "video", Title: "Introduction Video", Reward: 5},
				{ID: "activity", Title: "Traffic Light Build", Reward: 10},
				{ID: "quiz", Title: "Knowledge Quiz", Reward: 15},
				{ID: "puzzle", Title: "Automation Puzzle", Reward: 20},
			},
		},
		{
			ID:          "robot",
			Title:       "Build a Robot",
			Description: "Assemble sensors, a controller and motors into a robot.",
			Emoji:       "🤖",
			Difficulty:  "Hard",
			Duration:    "40 min",
			Path:        "/activity/robot",
			Sections: []Section{
				{ID: "video", Title: "Introduction Video", Reward: 5},
				{ID: "activity", Title: "Robot Building", Reward: 10},
				{ID: "quiz", Title: "Knowledge Quiz", Reward: 15},
				{ID: "puzzle", Title: "Robot Puzzle", Reward: 20},
			},
		},
	}
}

// BuiltinQuizzes returns the quizzes shipped with the service, keyed by name.
func BuiltinQuizzes() map[string]Quiz {
	quizzes := []Quiz{
		{
			Name:     "READANDWRITE",
			Title:    "Read & Write",
			Matching: MatchFold,
			Questions: []Question{
				{ID: "1", Prompt: "What does the symbol 'V' represent in an electric circuit?", CorrectAnswer: "Voltage", Options: []string{"Velocity", "Volume", "Voltage", "Vacuum"}},
				{ID: "2", Prompt: "What device converts electrical energy into light energy?", CorrectAnswer: "Light bulb", Options: []string{"Motor", "Switch", "Light bulb", "Resistor"}},
				{ID: "3", Prompt: "Which of these is not a source of electricity?", CorrectAnswer: "Bulb", Options: []string{"Battery", "Generator", "Solar panel", "Bulb"}},
				{ID: "4", Prompt: "What happens when a circuit is open?", CorrectAnswer: "Current does not flow", Options: []string{"Current flows easily", "Light turns on", "Current does not flow", "Battery gets charged"}},
				{ID: "5", Prompt: "In which type of circuit does the current have more than one path to flow?", CorrectAnswer: "Parallel circuit", Options: []string{"Open circuit", "Closed circuit", "Series circuit", "Parallel circuit"}},
			},
		},
		{
			Name:     "VISUAL",
			Title:    "Visual",
			Matching: MatchFold,
			Questions: []Question{
				{ID: "1", Prompt: "What should you do when the traffic light turns red?", CorrectAnswer: "Stop", Options: []string{"Go", "Stop", "Wait", "Run"}},
				{ID: "2", Prompt: "What should you do when the traffic light turns green?", CorrectAnswer: "Go", Options: []string{"Stop", "Go", "Wait", "Run"}},
				{ID: "3", Prompt: "What should you do when the traffic light turns yellow?", CorrectAnswer: "Wait", Options: []string{"Go", "Stop", "Wait", "Run"}},
				{ID: "4", Prompt: "What should you do at a pedestrian crossing?", CorrectAnswer: "Wait", Options: []string{"Go", "Run", "Wait", "Stop"}},
				{ID: "5", Prompt: "What should you do when you see a yield sign?", CorrectAnswer: "Yield", Options: []string{"Go", "Stop", "Yield", "Run"}},
			},
		},
		{
			Name:     "AUDITORY",
			Title:    "Auditory",
			Matching: MatchExact,
			Questions: []Question{
				{ID: "1", Prompt: "What is Sri Lanka's administrative capital?", CorrectAnswer: "Sri Jayawardenepura Kotte", Options: []string{"Colombo", "Kandy", "Sri Jayawardenepura Kotte", "Anuradhapura"}},
				{ID: "2", Prompt: "What is a famous city known for its temple?", CorrectAnswer: "Kandy", Options: []string{"Colombo", "Kandy", "Anuradhapura", "Galle"}},
				{ID: "3", Prompt: "What is the commercial capital of Sri Lanka?", CorrectAnswer: "Colombo", Options: []string{"Kandy", "Colombo", "Anuradhapura", "Jaffna"}},
				{ID: "4", Prompt: "What is an ancient city with a famous dagoba?", CorrectAnswer: "Anuradhapura", Options: []string{"Colombo", "Kandy", "Galle", "Anuradhapura"}},
				{ID: "5", Prompt: "What is a coastal city known for its fort?", CorrectAnswer: "Galle", Options: []string{"Colombo", "Anuradhapura", "Jaffna", "Galle"}},
			},
		},
		{
			Name:     "DRAGANDDROP",
			Title:    "Drag & Drop",
			Matching: MatchExact,
			Questions: []Question{
				{ID: "1", Prompt: "A complete path for current to flow is called a:", CorrectAnswer: "Circuit", Options: []string{"Break", "Wire", "Circuit", "Loop"}},
				{ID: "2", Prompt: "What device is used to protect a circuit from too much current?", CorrectAnswer: "Fuse", Options: []string{"Switch", "Bulb", "Fuse", "Battery"}},
				{ID: "3", Prompt: "What does a resistor do in a circuit?", CorrectAnswer: "Resists the flow of current", Options: []string{"Stores energy", "Allows free flow of current", "Resists the flow of current", "Changes voltage to current"}},
				{ID: "4", Prompt: "Which symbol is used for a battery in a circuit diagram?", CorrectAnswer: "A short and a long line", Options: []string{"Circle with a cross", "A short and a long line", "Stores energy", "Allows free flow of current"}},
				{ID: "5", Prompt: "What kind of circuit has only one path for current to flow?", CorrectAnswer: "Series circuit", Options: []string{"Parallel circuit", "Mixed circuit", "Series circuit", "Open circuit"}},
			},
		},
	}
	out := make(map[string]Quiz, len(quizzes))
	for _, q := range quizzes {
		out[q.Name] = q
	}
	return out
}
