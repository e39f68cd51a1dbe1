package engine

import "time"

var basePoints = map[int]int{
	1: 100,
	2: 300,
	3: 500,
	4: 800,
}

// PointsForLines returns the score awarded for clearing lines rows at once
// at the given level. Counts outside 1-4 earn nothing.
func PointsForLines(lines, level int) int {
	return basePoints[lines] * level
}

// LevelForLines returns the level reached after lines total cleared rows
func LevelForLines(lines int) int {
	return lines/LinesPerLevel + 1
}

// DropIntervalForLevel returns the gravity period at a level
func DropIntervalForLevel(level int) time.Duration {
	return max(MinDropInterval, InitialDropInterval-time.Duration(level-1)*DropIntervalStep)
}
