package mapflow

// Entry is one weighted (map, mode) pair in a pool.
type Entry struct {
	Map    string
	Mode   string
	Weight int
}

// DefaultPools is the stock two-pool configuration: "popular" weights
// community favourites higher, "random" spreads across the full rotation.
func DefaultPools() map[Style][]Entry {
	return map[Style][]Entry{
		StylePopular: {
			{Map: "Scrapyard", Mode: "Headquarters", Weight: 22},
			{Map: "Invasion", Mode: "Headquarters", Weight: 22},
			{Map: "Terminal", Mode: "Headquarters", Weight: 20},
			{Map: "Favela", Mode: "Capture The Flag", Weight: 6},
			{Map: "Highrise", Mode: "Capture The Flag", Weight: 6},
			{Map: "Favela", Mode: "Domination", Weight: 4},
			{Map: "Highrise", Mode: "Domination", Weight: 4},
			{Map: "Sub Base", Mode: "Headquarters", Weight: 4},
			{Map: "Rundown", Mode: "Headquarters", Weight: 4},
			{Map: "Karachi", Mode: "Headquarters", Weight: 4},
			{Map: "Underpass", Mode: "Headquarters", Weight: 4},
		},
		StyleRandom: {
			{Map: "Scrapyard", Mode: "Headquarters", Weight: 10},
			{Map: "Invasion", Mode: "Headquarters", Weight: 10},
			{Map: "Terminal", Mode: "Headquarters", Weight: 10},
			{Map: "Sub Base", Mode: "Headquarters", Weight: 5},
			{Map: "Rundown", Mode: "Headquarters", Weight: 5},
			{Map: "Karachi", Mode: "Headquarters", Weight: 5},
			{Map: "Underpass", Mode: "Headquarters", Weight: 5},
			{Map: "Favela", Mode: "Headquarters", Weight: 2},
			{Map: "Skidrow", Mode: "Headquarters", Weight: 2},
			{Map: "Afghan", Mode: "Headquarters", Weight: 2},
			{Map: "Wasteland", Mode: "Headquarters", Weight: 2},
			{Map: "Quarry", Mode: "Headquarters", Weight: 2},
			{Map: "Estate", Mode: "Headquarters", Weight: 1},
			{Map: "Derail", Mode: "Headquarters", Weight: 1},

			{Map: "Favela", Mode: "Capture The Flag", Weight: 5},
			{Map: "Highrise", Mode: "Capture The Flag", Weight: 5},
			{Map: "Underpass", Mode: "Capture The Flag", Weight: 2},
			{Map: "Rundown", Mode: "Capture The Flag", Weight: 2},
			{Map: "Quarry", Mode: "Capture The Flag", Weight: 2},
			{Map: "Derail", Mode: "Capture The Flag", Weight: 1},

			{Map: "Favela", Mode: "Domination", Weight: 5},
			{Map: "Highrise", Mode: "Domination", Weight: 5},
			{Map: "Skidrow", Mode: "Domination", Weight: 2},
			{Map: "Rundown", Mode: "Domination", Weight: 2},
			{Map: "Karachi", Mode: "Domination", Weight: 1},
			{Map: "Quarry", Mode: "Domination", Weight: 1},

			{Map: "Terminal", Mode: "Sabotage", Weight: 2},
			{Map: "Scrapyard", Mode: "Sabotage", Weight: 2},
			{Map: "Wasteland", Mode: "Sabotage", Weight: 1},
		},
	}
}
