package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// In-memory repository fakes shared by the service tests.

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, repository.ErrDuplicateEntry
		}
	}
	clone := *user
	clone.ID = r.nextID
	r.nextID++
	r.users[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) FindByID(_ context.Context, id int) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *fakeUserRepo) FindByOIDCSubject(_ context.Context, providerID int, subject string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.OIDCProvider.Valid && int(u.OIDCProvider.Int64) == providerID &&
			u.OIDCSubject.Valid && u.OIDCSubject.String == subject {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) FindAll(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id int, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = passwordHash
	return nil
}

func (r *fakeUserRepo) LinkOIDCSubject(_ context.Context, id int, providerID int, subject string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.OIDCProvider.SetValid(int64(providerID))
	u.OIDCSubject.SetValid(subject)
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type fakeLotRepo struct {
	mu     sync.Mutex
	nextID int
	lots   map[int]*domain.ParkingLot
}

func newFakeLotRepo() *fakeLotRepo {
	return &fakeLotRepo{nextID: 1, lots: make(map[int]*domain.ParkingLot)}
}

func (r *fakeLotRepo) Create(_ context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *lot
	clone.ID = r.nextID
	r.nextID++
	r.lots[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeLotRepo) FindByID(_ context.Context, id int) (*domain.ParkingLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lot, ok := r.lots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *lot
	return &out, nil
}

func (r *fakeLotRepo) FindAll(_ context.Context) ([]domain.ParkingLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ParkingLot, 0, len(r.lots))
	for _, lot := range r.lots {
		out = append(out, *lot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeLotRepo) Update(_ context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lots[lot.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	clone := *lot
	r.lots[lot.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeLotRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lots[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.lots, id)
	return nil
}

type fakeSpaceRepo struct {
	mu     sync.Mutex
	nextID int
	spaces map[int]*domain.ParkingSpace
}

func newFakeSpaceRepo() *fakeSpaceRepo {
	return &fakeSpaceRepo{nextID: 1, spaces: make(map[int]*domain.ParkingSpace)}
}

func (r *fakeSpaceRepo) Create(_ context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *space
	clone.ID = r.nextID
	r.nextID++
	r.spaces[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeSpaceRepo) FindByID(_ context.Context, id int) (*domain.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	space, ok := r.spaces[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *space
	return &out, nil
}

func (r *fakeSpaceRepo) FindByLotID(_ context.Context, lotID int) ([]domain.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ParkingSpace
	for _, space := range r.spaces {
		if space.LotID == lotID {
			out = append(out, *space)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSpaceRepo) Update(_ context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.spaces[space.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	clone := *space
	r.spaces[space.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeSpaceRepo) UpdateLayout(_ context.Context, lotID int, layout []domain.SpaceLayoutDTO) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range layout {
		space, ok := r.spaces[item.SpaceID]
		if !ok || space.LotID != lotID {
			return repository.ErrNotFound
		}
		space.PosX = item.PosX
		space.PosY = item.PosY
		space.Width = item.Width
		space.Height = item.Height
		space.Rotation = item.Rotation
	}
	return nil
}

func (r *fakeSpaceRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.spaces[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.spaces, id)
	return nil
}

type fakeBookingRepo struct {
	mu       sync.Mutex
	nextID   int
	bookings map[int]*domain.Booking
	rows     []domain.ReportRow
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{nextID: 1, bookings: make(map[int]*domain.Booking)}
}

func (r *fakeBookingRepo) hasOverlap(spaceID int, start, end time.Time, excludeID int) bool {
	for _, b := range r.bookings {
		if b.SpaceID != spaceID || b.ID == excludeID || b.Status != domain.BookingActive {
			continue
		}
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}

func (r *fakeBookingRepo) Create(_ context.Context, booking *domain.Booking) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hasOverlap(booking.SpaceID, booking.StartTime, booking.EndTime, 0) {
		return nil, repository.ErrBookingConflict
	}
	clone := *booking
	clone.ID = r.nextID
	r.nextID++
	clone.CreatedAt = time.Now().UTC()
	r.bookings[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeBookingRepo) UpdateInterval(_ context.Context, booking *domain.Booking) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bookings[booking.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if r.hasOverlap(stored.SpaceID, booking.StartTime, booking.EndTime, booking.ID) {
		return nil, repository.ErrBookingConflict
	}
	stored.StartTime = booking.StartTime
	stored.EndTime = booking.EndTime
	stored.Notes = booking.Notes
	out := *stored
	return &out, nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id int) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *b
	return &out, nil
}

func (r *fakeBookingRepo) Find(_ context.Context, filter domain.BookingFilterDTO) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Booking
	for _, b := range r.bookings {
		if filter.UserID != nil && b.UserID != *filter.UserID {
			continue
		}
		if filter.SpaceID != nil && b.SpaceID != *filter.SpaceID {
			continue
		}
		if filter.Status != nil && string(b.Status) != *filter.Status {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeBookingRepo) FindAll(_ context.Context) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeBookingRepo) FindActiveBySpaceAndRange(_ context.Context, spaceID int, start, end time.Time) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Booking
	for _, b := range r.bookings {
		if b.SpaceID == spaceID && b.Status == domain.BookingActive && b.Overlaps(start, end) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) UpdateStatus(_ context.Context, id int, status domain.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.Status = status
	return nil
}

func (r *fakeBookingRepo) UpdateNotes(_ context.Context, id int, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.Notes.SetValid(notes)
	return nil
}

func (r *fakeBookingRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *fakeBookingRepo) CompleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, b := range r.bookings {
		if b.Status == domain.BookingActive && b.EndTime.Before(now) {
			b.Status = domain.BookingCompleted
			count++
		}
	}
	return count, nil
}

func (r *fakeBookingRepo) ExportRows(_ context.Context, _ domain.BookingFilterDTO) ([]domain.ReportRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ReportRow(nil), r.rows...), nil
}

type fakeTemplateRepo struct {
	mu        sync.Mutex
	nextID    int
	templates map[int]*domain.ReportTemplate
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{nextID: 1, templates: make(map[int]*domain.ReportTemplate)}
}

func (r *fakeTemplateRepo) Create(_ context.Context, template *domain.ReportTemplate) (*domain.ReportTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *template
	clone.ID = r.nextID
	r.nextID++
	r.templates[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeTemplateRepo) FindByID(_ context.Context, id int) (*domain.ReportTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (r *fakeTemplateRepo) FindAll(_ context.Context) ([]domain.ReportTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ReportTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTemplateRepo) FindScheduled(_ context.Context) ([]domain.ReportTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ReportTemplate
	for _, t := range r.templates {
		if t.Enabled && t.ScheduleHour.Valid {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTemplateRepo) Update(_ context.Context, template *domain.ReportTemplate) (*domain.ReportTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[template.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	clone := *template
	r.templates[template.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeTemplateRepo) MarkRun(_ context.Context, id int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.LastRunAt.SetValid(at)
	return nil
}

func (r *fakeTemplateRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.templates, id)
	return nil
}

type fakeSettingsRepo struct {
	mu      sync.Mutex
	email   domain.EmailSettings
	backup  domain.BackupSettings
	styling map[string]string
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{styling: make(map[string]string)}
}

func (r *fakeSettingsRepo) GetEmailSettings(_ context.Context) (*domain.EmailSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.email
	return &out, nil
}

func (r *fakeSettingsRepo) UpdateEmailSettings(_ context.Context, settings *domain.EmailSettings) (*domain.EmailSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.email = *settings
	out := r.email
	return &out, nil
}

func (r *fakeSettingsRepo) GetBackupSettings(_ context.Context) (*domain.BackupSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.backup
	return &out, nil
}

func (r *fakeSettingsRepo) UpdateBackupSettings(_ context.Context, settings *domain.BackupSettings) (*domain.BackupSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backup = *settings
	out := r.backup
	return &out, nil
}

func (r *fakeSettingsRepo) MarkBackupRun(_ context.Context, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backup.LastRunAt.SetValid(at)
	return nil
}

func (r *fakeSettingsRepo) GetStyling(_ context.Context) ([]domain.AppConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AppConfig, 0, len(r.styling))
	for k, v := range r.styling {
		out = append(out, domain.AppConfig{Key: k, Value: v})
	}
	return out, nil
}

func (r *fakeSettingsRepo) SetStyling(_ context.Context, entries map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range entries {
		r.styling[k] = v
	}
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []domain.BookingNotification
}

func (n *fakeNotifier) BroadcastBooking(event domain.BookingNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *fakeNotifier) Events() []domain.BookingNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.BookingNotification(nil), n.events...)
}

// fakeS3 records uploads and serves listings for the backup tests.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var body []byte
	if params.Body != nil {
		body, _ = io.ReadAll(params.Body)
	}
	f.objects[aws.ToString(params.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListObjectsV2Output{}
	now := time.Now().UTC()
	i := 0
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		k := key
		size := int64(len(f.objects[k]))
		modified := now.Add(time.Duration(i) * time.Second)
		out.Contents = append(out.Contents, s3types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(size),
			LastModified: aws.Time(modified),
		})
		i++
	}
	return out, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(params.Key)
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return &s3.DeleteObjectOutput{}, nil
}
