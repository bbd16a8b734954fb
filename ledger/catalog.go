package ledger

// Challenge is one entry of the practice catalog. Points are awarded
// exactly once per account on first completion.
type Challenge struct {
	ID     string
	Title  string
	Points int
}

// catalog is the built-in challenge set, ordered by difficulty.
var catalog = []Challenge{
	{ID: "beginners", Title: "Beginner Basics", Points: 10},
	{ID: "if-else", Title: "Conditionals", Points: 15},
	{ID: "strings", Title: "String Handling", Points: 20},
	{ID: "loops", Title: "Loops", Points: 25},
	{ID: "intermediate", Title: "Intermediate Problems", Points: 30},
	{ID: "arrays", Title: "Arrays", Points: 35},
	{ID: "patterns", Title: "Pattern Printing", Points: 40},
	{ID: "advanced", Title: "Advanced Problems", Points: 45},
	{ID: "javascript", Title: "JavaScript Track", Points: 50},
}

// Catalog returns a copy of the challenge set.
func Catalog() []Challenge {
	out := make([]Challenge, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the challenge with the given ID.
func Lookup(id string) (Challenge, bool) {
	for _, c := range catalog {
		if c.ID == id {
			return c, true
		}
	}
	return Challenge{}, false
}
