package config

import "sort"

// BuiltIn returns the predefined fixture profiles.
func BuiltIn() map[string]Profile {
	return map[string]Profile{
		"gen-1000": {
			Name:        "gen-1000",
			Description: "One day of 100 devices reporting ten times a minute, about 1.3 million records.",
			Observations: &Observations{
				PerUnit:    10,
				Devices:    100,
				Days:       1,
				StartDate:  "2023-01-11",
				Resolution: "minute",
			},
		},
		"smoke": {
			Name:        "smoke",
			Description: "Three devices reporting once a minute for a day; quick sanity input.",
			Observations: &Observations{
				PerUnit:    1,
				Devices:    3,
				Days:       1,
				StartDate:  "2023-01-01",
				Resolution: "minute",
			},
		},
		"high-rate": {
			Name:        "high-rate",
			Description: "Ten devices reporting every second with no gaps.",
			Observations: &Observations{
				PerUnit:            1,
				Devices:            10,
				Days:               1,
				StartDate:          "2023-01-01",
				Resolution:         "second",
				DisableSuppression: true,
			},
		},
		"signal-k-demo": {
			Name:        "signal-k-demo",
			Description: "Five boats scattered within ten nautical miles of San Francisco, stepped three times.",
			Vessels: &Vessels{
				Boats:    5,
				BaseLat:  37.7749,
				BaseLon:  -122.4194,
				RadiusNM: 10,
				Steps:    3,
			},
		},
		"harbor": {
			Name:        "harbor",
			Description: "Twenty boats off Rotterdam within three nautical miles, one step per second for a minute.",
			Vessels: &Vessels{
				Boats:    20,
				BaseLat:  51.9496,
				BaseLon:  4.1453,
				RadiusNM: 3,
				Steps:    60,
				Interval: "1s",
			},
		},
	}
}

// Lookup returns a built-in profile by name.
func Lookup(name string) (Profile, bool) {
	p, ok := BuiltIn()[name]
	return p, ok
}

// Names returns the built-in profile names sorted alphabetically.
func Names() []string {
	profiles := BuiltIn()
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
