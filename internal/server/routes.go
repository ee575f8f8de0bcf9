package server

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api", s.identityMiddleware)

	api.GET("/sessions", s.handleListSessions)
	api.POST("/sessions", s.handleCreateSession)
	api.GET("/sessions/active", s.handleActiveSession)
	api.PATCH("/sessions/:id", s.handleUpdateSession)
	api.POST("/sessions/:id/complete", s.handleCompleteSession)
	api.DELETE("/sessions/:id", s.handleDeleteSession)

	api.GET("/sessions/:id/markers", s.handleListMarkers)
	api.POST("/sessions/:id/markers", s.handleAddMarker)
	api.DELETE("/sessions/:id/markers", s.handleClearMarkers)

	api.GET("/markers/active", s.handleActiveMarkers)
	api.POST("/markers/place", s.handlePlaceMarker)
	api.DELETE("/markers/:id", s.handleDeleteMarker)

	api.GET("/history", s.handleHistory)

	api.GET("/preferences", s.handleGetPreferences)
	api.PUT("/preferences", s.handleSavePreferences)
	api.GET("/weather", s.handleListWeather)
	api.POST("/weather", s.handleSaveWeather)
	api.GET("/analyses", s.handleListAnalyses)
	api.POST("/analyses", s.handleSaveAnalysis)
}
