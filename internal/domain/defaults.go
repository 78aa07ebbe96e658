package domain

// DefaultQuestions returns the built-in question set used whenever the
// configured source is unreachable or empty.
func DefaultQuestions() []Question {
	return []Question{
		{
			Text:    "Which keyword is used to create a class in Java?",
			Options: Options{{LabelA, "class"}, {LabelB, "new"}, {LabelC, "object"}, {LabelD, "create"}},
			Answer:  LabelA,
		},
		{
			Text:    "What is the entry point method of a Java program?",
			Options: Options{{LabelA, "start()"}, {LabelB, "run()"}, {LabelC, "main()"}, {LabelD, "init()"}},
			Answer:  LabelC,
		},
		{
			Text:    "What is the size of int in Java (in bits)?",
			Options: Options{{LabelA, "8"}, {LabelB, "16"}, {LabelC, "32"}, {LabelD, "64"}},
			Answer:  LabelC,
		},
		{
			Text:    "Which of the following is NOT a primitive data type in Java?",
			Options: Options{{LabelA, "int"}, {LabelB, "float"}, {LabelC, "String"}, {LabelD, "boolean"}},
			Answer:  LabelC,
		},
		{
			Text:    "Which keyword is used to create an object in Java?",
			Options: Options{{LabelA, "class"}, {LabelB, "new"}, {LabelC, "this"}, {LabelD, "object"}},
			Answer:  LabelB,
		},
	}
}
