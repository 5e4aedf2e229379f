package biz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadpulse/cmd/admission-service/internal/domain"
	"leadpulse/pkg/clients/vendor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestWhatsApp(baseURL string, breaker vendor.BreakerConfig) *vendor.WhatsAppClient {
	return vendor.NewWhatsAppClient(vendor.WhatsAppConfig{
		BaseURL:       baseURL,
		PhoneNumberID: "12345",
		Timeout:       2 * time.Second,
		Breaker:       breaker,
	}, zap.NewNop())
}

func newTestUsecase(leads *memLeadRepo, pub *capturePublisher, whatsapp *vendor.WhatsAppClient) *LeadUsecase {
	logger := zap.NewNop()
	twilio := vendor.NewTwilioVoiceClient(vendor.TwilioConfig{BaseURL: "http://example.invalid"}, logger)
	klicktipp := vendor.NewKlickTippClient(vendor.KlickTippConfig{BaseURL: "http://example.invalid"}, logger)
	return NewLeadUsecase(leads, pub, whatsapp, twilio, klicktipp, logger)
}

func okVendorServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLeadUsecase_IngestAssignsDefaults(t *testing.T) {
	leads := newMemLeadRepo()
	pub := &capturePublisher{}
	uc := newTestUsecase(leads, pub, newTestWhatsApp(okVendorServer(t).URL, vendor.DefaultBreakerConfig()))

	lead := &domain.Lead{TenantID: "t1", Phone: "+491701234567", Channel: domain.ChannelWhatsApp}
	outcome, err := uc.IngestLead(context.Background(), lead, domain.ProcessingHints{})

	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, domain.LeadStatusNew, lead.Status)
	assert.Equal(t, lead.ID, outcome.EntityID)

	stored, err := leads.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusNew, stored.Status)

	events := pub.all()
	require.Len(t, events, 1)
	assert.Equal(t, "lead.ingested", events[0].EventType)
	assert.Equal(t, lead.ID, events[0].LeadID)
}

func TestLeadUsecase_IngestDefersAnalyticsUnderBackpressure(t *testing.T) {
	leads := newMemLeadRepo()
	pub := &capturePublisher{}
	uc := newTestUsecase(leads, pub, newTestWhatsApp(okVendorServer(t).URL, vendor.DefaultBreakerConfig()))

	lead := &domain.Lead{TenantID: "t1", Channel: domain.ChannelWhatsApp}
	_, err := uc.IngestLead(context.Background(), lead, domain.ProcessingHints{
		Mode:           domain.ModeLight,
		DeferAnalytics: true,
	})

	require.NoError(t, err)
	// 线索照常入库，只有统计事件被推迟
	_, err = leads.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Empty(t, pub.all())
}

func TestLeadUsecase_RelayMarksLeadEngaged(t *testing.T) {
	lead := &domain.Lead{ID: "lead-1", TenantID: "t1", Phone: "+491701234567", Status: domain.LeadStatusNew}
	leads := newMemLeadRepo(lead)
	pub := &capturePublisher{}
	uc := newTestUsecase(leads, pub, newTestWhatsApp(okVendorServer(t).URL, vendor.DefaultBreakerConfig()))

	msg := &domain.OutboundMessage{LeadID: "lead-1", TenantID: "t1", Channel: domain.ChannelWhatsApp, Body: "hallo"}
	outcome, result, err := uc.RelayMessage(context.Background(), msg, domain.ProcessingHints{})

	require.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.Equal(t, "lead-1", outcome.EntityID)
	assert.Equal(t, string(domain.LeadStatusNew), outcome.Before["status"])
	assert.Equal(t, string(domain.LeadStatusEngaged), outcome.After["status"])

	stored, err := leads.GetLead(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusEngaged, stored.Status)

	events := pub.all()
	require.Len(t, events, 1)
	assert.Equal(t, "message.relayed", events[0].EventType)
}

func TestLeadUsecase_SevereBackpressureForcesTemplate(t *testing.T) {
	lead := &domain.Lead{ID: "lead-1", TenantID: "t1", Phone: "+491701234567", Status: domain.LeadStatusNew}
	leads := newMemLeadRepo(lead)
	uc := newTestUsecase(leads, &capturePublisher{}, newTestWhatsApp(okVendorServer(t).URL, vendor.DefaultBreakerConfig()))

	msg := &domain.OutboundMessage{LeadID: "lead-1", Channel: domain.ChannelWhatsApp, Body: "freeform", Template: false}
	outcome, _, err := uc.RelayMessage(context.Background(), msg, domain.ProcessingHints{
		Mode:          domain.ModeSevere,
		TemplatesOnly: true,
	})

	require.NoError(t, err)
	assert.True(t, msg.Template)
	assert.Equal(t, true, outcome.After["template"])
}

func TestLeadUsecase_OpenBreakerReturnsStructuredFallback(t *testing.T) {
	lead := &domain.Lead{ID: "lead-1", TenantID: "t1", Phone: "+491701234567", Status: domain.LeadStatusNew}
	leads := newMemLeadRepo(lead)

	// 阈值 0：首次失败即熔断
	whatsapp := newTestWhatsApp("http://example.invalid", vendor.BreakerConfig{
		Threshold:    0,
		MinRequests:  1,
		Interval:     10 * time.Second,
		ResetTimeout: 30 * time.Second,
	})
	uc := newTestUsecase(leads, &capturePublisher{}, whatsapp)
	ctx := context.Background()

	msg := &domain.OutboundMessage{LeadID: "lead-1", Channel: domain.ChannelWhatsApp, Body: "hallo"}

	// 第一次：真实网络失败
	_, _, err := uc.RelayMessage(ctx, msg, domain.ProcessingHints{})
	require.Error(t, err)

	// 第二次：熔断短路，降级结果 + 明确错误
	_, result, err := uc.RelayMessage(ctx, msg, domain.ProcessingHints{})
	assert.ErrorIs(t, err, domain.ErrVendorUnavailable)
	require.NotNil(t, result)
	assert.True(t, result.Fallback)
	assert.Equal(t, vendor.FallbackMessage, result.Error)

	// 降级路径不推进线索状态
	stored, err := leads.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusNew, stored.Status)
}

func TestLeadUsecase_UnknownChannelRejected(t *testing.T) {
	lead := &domain.Lead{ID: "lead-1", TenantID: "t1", Status: domain.LeadStatusNew}
	leads := newMemLeadRepo(lead)
	uc := newTestUsecase(leads, &capturePublisher{}, newTestWhatsApp(okVendorServer(t).URL, vendor.DefaultBreakerConfig()))

	msg := &domain.OutboundMessage{LeadID: "lead-1", Channel: domain.LeadChannel("fax")}
	_, _, err := uc.RelayMessage(context.Background(), msg, domain.ProcessingHints{})

	assert.ErrorIs(t, err, domain.ErrInvalidChannel)
}

func TestLeadUsecase_RelayToMissingLead(t *testing.T) {
	uc := newTestUsecase(newMemLeadRepo(), &capturePublisher{}, newTestWhatsApp(okVendorServer(t).URL, vendor.DefaultBreakerConfig()))

	msg := &domain.OutboundMessage{LeadID: "ghost", Channel: domain.ChannelWhatsApp}
	_, _, err := uc.RelayMessage(context.Background(), msg, domain.ProcessingHints{})

	assert.ErrorIs(t, err, domain.ErrLeadNotFound)
}
