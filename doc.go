// Package main provides the entry point for the TeamGrid access control and
// security audit service. It runs a web server using the Fiber framework
// exposing authentication, role administration, team membership, audit trail
// and security incident endpoints. The service uses gorm for persistence and
// records all user activity through an asynchronous audit pipeline with
// anomaly detection.
package main
