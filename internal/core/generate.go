package core

//go:generate mockgen -destination=../mocks/mock_signal.go -package=mocks github.com/dkeye/roomchat/internal/core SignalConnection
