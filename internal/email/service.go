package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/logger"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	queueKey  = "emails"
	failedKey = "emails:failed"

	maxTries = 3
)

// EmailJob is one queued delivery. CampaignID ties the job back to the
// campaign that paid for it; zero means a transactional mail.
type EmailJob struct {
	ID         string    `json:"id"`
	CampaignID int64     `json:"campaign_id,omitempty"`
	To         string    `json:"to"`
	Name       string    `json:"name"`
	FromEmail  string    `json:"from_email"`
	FromName   string    `json:"from_name"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Tries      int       `json:"tries"`
	Created    time.Time `json:"created"`
}

// Service queues outgoing mail in redis and drains the queue through SMTP.
// Delivery is asynchronous: Queue returns once the job is durably enqueued.
type Service struct {
	redis    *redis.Client
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return NewWithClient(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redis.NewClient(&redis.Options{
		Addr: redisAddr,
	}))
}

// NewWithClient shares an existing redis client, used by the dispatcher and
// by tests.
func NewWithClient(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass string, client *redis.Client) *Service {
	return &Service{
		redis:    client,
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

func (s *Service) Client() *redis.Client {
	return s.redis
}

// Queue enqueues a job for asynchronous delivery. Empty From fields fall
// back to the service-wide sender.
func (s *Service) Queue(ctx context.Context, job EmailJob) error {
	job.ID = uuid.NewString()
	job.Tries = 0
	job.Created = time.Now()
	if job.FromEmail == "" {
		job.FromEmail = s.from
	}
	if job.FromName == "" {
		job.FromName = s.fromName
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal email job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, string(data)).Err(); err != nil {
		logger.Errorf("Failed to queue email to %s: %v", job.To, err)
		return err
	}

	metrics.EmailQueueLength.Inc()
	logger.Infof("Email queued: %s to %s", job.Subject, job.To)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Email worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Email worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}
	metrics.EmailQueueLength.Dec()

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad email data: %v", err)
		return
	}

	job.Tries++
	logger.Infof("Sending email to %s (attempt %d)", job.To, job.Tries)
	if err := s.sendNow(job); err != nil {
		logger.Errorf("Failed to send email to %s: %v", job.To, err)

		if job.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
			metrics.EmailQueueLength.Inc()
			logger.Infof("Retrying email to %s (attempt %d)", job.To, job.Tries+1)
		} else {
			logger.Errorf("Email to %s failed after %d attempts", job.To, maxTries)
			metrics.EmailsSentTotal.WithLabelValues("failed").Inc()
			s.saveFailed(job, err)
		}
		return
	}

	metrics.EmailsSentTotal.WithLabelValues("sent").Inc()
	logger.Infof("Email sent successfully to %s", job.To)
}

func (s *Service) sendNow(job EmailJob) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", job.FromName, job.FromEmail)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, job.FromEmail, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job EmailJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedKey, data)
	logger.Errorf("Email moved to failed queue: %s", job.To)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}

// SendCreditGrantNotice tells a user an admin topped up their wallet.
func (s *Service) SendCreditGrantNotice(ctx context.Context, to, name string, amount, balance int64) error {
	body := fmt.Sprintf(`Hi %s,

%d credits were added to your wallet.

New balance: %d credits

- LeadIQ Team`, name, amount, balance)

	return s.Queue(ctx, EmailJob{
		To:      to,
		Name:    name,
		Subject: "Credits added to your account",
		Body:    body,
	})
}
