package main

//go:generate swag init -g cmd/narrativelog/main.go -o docs

// @title           Narrative log service
// @version         0.1.0
// @description     A REST web service to create and manage operator-generated log messages.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
