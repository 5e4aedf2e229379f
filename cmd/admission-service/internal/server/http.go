package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"leadpulse/cmd/admission-service/internal/biz"
	"leadpulse/cmd/admission-service/internal/domain"
	"leadpulse/cmd/admission-service/internal/service"
	"leadpulse/pkg/auth"
	"leadpulse/pkg/clients/vendor"
	"leadpulse/pkg/health"
	"leadpulse/pkg/middleware"
	"leadpulse/pkg/monitoring"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger 日志接口
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// HTTPServer HTTP 服务器
type HTTPServer struct {
	engine     *gin.Engine
	service    *service.AdmissionService
	jwtManager *auth.JWTManager
	health     *health.HealthChecker
	logger     Logger
}

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(srv *service.AdmissionService, jwtManager *auth.JWTManager, healthChecker *health.HealthChecker, logger Logger) *HTTPServer {
	// 设置 Gin 模式
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	s := &HTTPServer{
		engine:     engine,
		service:    srv,
		jwtManager: jwtManager,
		health:     healthChecker,
		logger:     logger,
	}

	// 注册中间件
	s.registerMiddlewares()

	// 注册路由
	s.registerRoutes()

	return s
}

// registerMiddlewares 注册中间件
func (s *HTTPServer) registerMiddlewares() {
	// Recovery 中间件
	s.engine.Use(gin.Recovery())

	// 请求日志中间件
	s.engine.Use(s.requestLogger())

	// CORS 中间件
	s.engine.Use(s.corsMiddleware())

	// 错误处理中间件
	s.engine.Use(s.errorHandler())
}

// requestLogger 请求日志中间件
func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		monitoring.RequestsTotal.WithLabelValues("admission-service", c.Request.Method, path, strconv.Itoa(status)).Inc()
		monitoring.RequestDuration.WithLabelValues("admission-service", c.Request.Method, path).Observe(latency.Seconds())

		s.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// corsMiddleware CORS 中间件
func (s *HTTPServer) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Tenant-ID, X-Request-ID, Idempotency-Key")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// errorHandler 错误处理中间件
func (s *HTTPServer) errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			s.logger.Error("Request error",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
		}
	}
}

// registerRoutes 注册路由
func (s *HTTPServer) registerRoutes() {
	api := s.engine.Group("/api/v1")

	// Webhook 入口：重放键取各自供应商的签名头
	webhooks := api.Group("/webhooks")
	{
		webhooks.POST("/whatsapp", s.ingestWhatsApp)
		webhooks.POST("/twilio", s.ingestTwilio)
	}

	// 线索接口
	leads := api.Group("/leads")
	leads.Use(middleware.Tenant())
	{
		leads.POST("", s.createLead)
		leads.POST("/:id/messages", s.relayMessage)
	}

	// 配额查询
	api.GET("/quota/:tenant_id", s.getQuotaStatus)

	// 审计接口（需要 JWT）
	audit := api.Group("/audit")
	audit.Use(middleware.AuthMiddleware(s.jwtManager))
	{
		audit.GET("/entities/:id", s.getAuditTrail)
		audit.GET("/recent", s.getRecentAudit)
	}

	// 健康检查
	s.engine.GET("/health", s.healthCheck)
	s.engine.GET("/ready", s.readinessCheck)
}

// requestKey 提取重放键
// 签名头优先（加密绑定请求内容），request-id / idempotency-key 兜底
func requestKey(c *gin.Context, signatureHeaders ...string) string {
	for _, h := range signatureHeaders {
		if v := c.GetHeader(h); v != "" {
			return v
		}
	}
	if v := c.GetHeader("X-Request-ID"); v != "" {
		return v
	}
	return c.GetHeader("Idempotency-Key")
}

// whatsappWebhookPayload WhatsApp Webhook 请求体（入站消息的最小子集）
type whatsappWebhookPayload struct {
	TenantID string `json:"tenant_id"`
	From     string `json:"from" binding:"required"`
	Name     string `json:"name"`
	Body     string `json:"body"`
}

// ingestWhatsApp WhatsApp 入站消息
func (s *HTTPServer) ingestWhatsApp(c *gin.Context) {
	var payload whatsappWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	tenantID := payload.TenantID
	if tenantID == "" {
		tenantID = c.GetHeader("X-Tenant-ID")
	}
	if tenantID == "" {
		s.respondError(c, http.StatusBadRequest, "tenant_id is required")
		return
	}

	meta := service.RequestMeta{
		RequestKey: requestKey(c, "X-Hub-Signature-256"),
		TenantID:   tenantID,
		ActorID:    "whatsapp-webhook",
		ActorType:  domain.ActorWebhook,
		SourceIP:   c.ClientIP(),
	}

	lead := &domain.Lead{
		Name:    payload.Name,
		Phone:   payload.From,
		Channel: domain.ChannelWhatsApp,
		Source:  "whatsapp_inbound",
	}

	result, err := s.service.IngestLead(c.Request.Context(), meta, lead)
	s.respondAdmission(c, result, nil, err)
}

// ingestTwilio Twilio 语音回调（form 编码）
func (s *HTTPServer) ingestTwilio(c *gin.Context) {
	from := c.PostForm("From")
	if from == "" {
		s.respondError(c, http.StatusBadRequest, "From is required")
		return
	}

	tenantID := c.GetHeader("X-Tenant-ID")
	if tenantID == "" {
		tenantID = c.Query("tenant_id")
	}
	if tenantID == "" {
		s.respondError(c, http.StatusBadRequest, "tenant_id is required")
		return
	}

	meta := service.RequestMeta{
		RequestKey: requestKey(c, "X-Twilio-Signature"),
		TenantID:   tenantID,
		ActorID:    "twilio-webhook",
		ActorType:  domain.ActorWebhook,
		SourceIP:   c.ClientIP(),
	}

	lead := &domain.Lead{
		Phone:   from,
		Channel: domain.ChannelVoice,
		Source:  "twilio_inbound",
	}

	result, err := s.service.IngestLead(c.Request.Context(), meta, lead)
	s.respondAdmission(c, result, nil, err)
}

// createLead 创建线索（后台或 API 调用方）
func (s *HTTPServer) createLead(c *gin.Context) {
	var req struct {
		Name    string `json:"name"`
		Phone   string `json:"phone"`
		Email   string `json:"email"`
		Channel string `json:"channel" binding:"required"`
		Source  string `json:"source"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	tenantID := middleware.GetTenantID(c)
	if tenantID == "" {
		s.respondError(c, http.StatusBadRequest, "X-Tenant-ID header is required")
		return
	}

	meta := service.RequestMeta{
		RequestKey: requestKey(c),
		TenantID:   tenantID,
		ActorID:    s.actorID(c),
		ActorType:  domain.ActorHuman,
		SourceIP:   c.ClientIP(),
	}

	lead := &domain.Lead{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Channel: domain.LeadChannel(req.Channel),
		Source:  req.Source,
	}

	result, err := s.service.IngestLead(c.Request.Context(), meta, lead)
	s.respondAdmission(c, result, nil, err)
}

// relayMessage 出站消息转发
func (s *HTTPServer) relayMessage(c *gin.Context) {
	leadID := c.Param("id")

	var req struct {
		Channel  string `json:"channel" binding:"required"`
		Body     string `json:"body"`
		Template bool   `json:"template"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	tenantID := middleware.GetTenantID(c)
	if tenantID == "" {
		s.respondError(c, http.StatusBadRequest, "X-Tenant-ID header is required")
		return
	}

	meta := service.RequestMeta{
		RequestKey: requestKey(c),
		TenantID:   tenantID,
		ActorID:    s.actorID(c),
		ActorType:  domain.ActorHuman,
		SourceIP:   c.ClientIP(),
	}

	msg := &domain.OutboundMessage{
		LeadID:   leadID,
		Channel:  domain.LeadChannel(req.Channel),
		Body:     req.Body,
		Template: req.Template,
	}

	result, vendorResult, err := s.service.RelayMessage(c.Request.Context(), meta, msg)

	// 熔断降级：结构化 503，调用方稍后重试
	if errors.Is(err, domain.ErrVendorUnavailable) {
		body := gin.H{
			"error":  "vendor_unavailable",
			"detail": "Service temporarily unavailable",
		}
		if vendorResult != nil && vendorResult.Error != "" {
			body["detail"] = vendorResult.Error
		}
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	s.respondAdmission(c, result, vendorResult, err)
}

// respondAdmission 把准入执行结果映射为 HTTP 响应
// 409 重复（不重试）、429 超配额（次日重试）、2xx 放行
func (s *HTTPServer) respondAdmission(c *gin.Context, result *biz.AdmissionResult, vendorResult *vendor.Result, err error) {
	if result != nil && !result.Admitted {
		switch result.Reason {
		case domain.RejectDuplicate:
			c.JSON(http.StatusConflict, gin.H{
				"error": string(domain.RejectDuplicate),
			})
		case domain.RejectQuotaExceeded:
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":     string(domain.RejectQuotaExceeded),
				"burned":    result.Quota.Burned,
				"limit":     result.Quota.Limit,
				"remaining": result.Quota.Remaining,
				"tier":      string(result.Quota.Tier),
			})
		default:
			s.respondError(c, http.StatusForbidden, string(result.Reason))
		}
		return
	}

	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	body := gin.H{
		"admitted": true,
	}
	if result != nil {
		if result.Outcome != nil {
			body["entity_id"] = result.Outcome.EntityID
		}
		if result.Quota != nil {
			body["quota"] = result.Quota
		}
		body["backpressure"] = result.Hints.Mode.String()
	}
	if vendorResult != nil {
		body["vendor"] = vendorResult
	}

	c.JSON(http.StatusCreated, body)
}

// getQuotaStatus 查询租户当日配额（只读，不消耗）
func (s *HTTPServer) getQuotaStatus(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	if tenantID == "" {
		s.respondError(c, http.StatusBadRequest, "tenant_id is required")
		return
	}

	usage, err := s.service.QuotaStatus(c.Request.Context(), tenantID)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, usage)
}

// getAuditTrail 查询实体审计轨迹
func (s *HTTPServer) getAuditTrail(c *gin.Context) {
	entityID := c.Param("id")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 100 {
		s.respondError(c, http.StatusBadRequest, "invalid limit, must be between 1 and 100")
		return
	}

	records, err := s.service.AuditTrail(c.Request.Context(), entityID, limit)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entity_id": entityID,
		"records":   records,
		"count":     len(records),
	})
}

// getRecentAudit 查询最近的审计记录
func (s *HTTPServer) getRecentAudit(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 100 {
		s.respondError(c, http.StatusBadRequest, "invalid limit, must be between 1 and 100")
		return
	}

	action := c.Query("action")

	records, err := s.service.AuditRecent(c.Request.Context(), limit, action)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}

// actorID 取认证用户，未认证时按来源 IP 记账
func (s *HTTPServer) actorID(c *gin.Context) string {
	if userID, ok := middleware.GetUserID(c); ok && userID != "" {
		return userID
	}
	return "anonymous:" + c.ClientIP()
}

// Engine 返回 Gin 引擎
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// Start 启动服务器
func (s *HTTPServer) Start(addr string) error {
	return s.engine.Run(addr)
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// respondError 响应错误
func (s *HTTPServer) respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorResponse{
		Code:    statusCode,
		Message: message,
	})
}

// handleServiceError 处理服务层错误
func (s *HTTPServer) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrLeadNotFound), errors.Is(err, domain.ErrTenantNotFound):
		s.respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidChannel):
		s.respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrVendorUnavailable):
		s.respondError(c, http.StatusServiceUnavailable, "Service temporarily unavailable")
	case errors.Is(err, domain.ErrStoreUnavailable):
		s.respondError(c, http.StatusServiceUnavailable, "shared store unavailable")
	default:
		s.logger.Error("Service error", zap.Error(err))
		s.respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

// healthCheck 健康检查
func (s *HTTPServer) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "admission-service",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// readinessCheck 就绪检查
// 数据库或共享存储不可达时返回 503，让上游摘除该实例
func (s *HTTPServer) readinessCheck(c *gin.Context) {
	ready, checks := s.health.IsReady(c.Request.Context())

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"ready":  ready,
		"checks": checks,
		"time":   time.Now().Format(time.RFC3339),
	})
}
