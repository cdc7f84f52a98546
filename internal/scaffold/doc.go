// Package scaffold creates a new innerself app. It checks the target
// directory, materializes the template with the recipe chosen by the mode
// flags, rolls the target back if that fails, and runs the dependency
// installer in the finished tree. It powers the root "innerself-app"
// command.
package scaffold
