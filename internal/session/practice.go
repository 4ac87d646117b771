package session

import "github.com/persistorai/depthcue/internal/models"

// PracticeTrials returns the fixed practice set for a task.
func PracticeTrials(task models.TaskType) []models.Trial {
	if task == models.TaskA {
		return []models.Trial{
			{TrialID: "practice_A_1", Task: models.TaskA, Condition: models.ConditionA, GraphFile: "graphs/graph_practice_1.csv", Node1: 0, Node2: 3, IsPractice: true},
			{TrialID: "practice_A_2", Task: models.TaskA, Condition: models.ConditionB, GraphFile: "graphs/graph_practice_2.csv", Node1: 1, Node2: 4, IsPractice: true},
		}
	}

	return []models.Trial{
		{TrialID: "practice_B_1", Task: models.TaskB, Condition: models.ConditionA, GraphFile: "graphs/graph_practice_3.csv", Node1: 0, Node2: 2, IsPractice: true},
		{TrialID: "practice_B_2", Task: models.TaskB, Condition: models.ConditionB, GraphFile: "graphs/graph_practice_4.csv", Node1: 1, Node2: 3, IsPractice: true},
	}
}
