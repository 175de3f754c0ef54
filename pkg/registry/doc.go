// Package registry holds validated flow definitions, their versions and
// the single active flow of a deployment.
package registry
