// Package variables migrates GitHub Actions variables between organizations,
// updating values that already exist in the target.
package variables
