package store

import (
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"
	"context"
	"fmt"
	"sort"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

const (
	firebaseDonorsPath        = "donors"
	firebaseRequestsPath      = "emergencyRequests"
	firebaseNotificationsPath = "notifications"
)

// Firebase stores each collection as a keyed object in the Realtime Database.
// Status compare-and-swap runs inside a database transaction.
type Firebase struct {
	client *db.Client
}

func NewFirebase(ctx context.Context, databaseURL, credentialsFile string) (*Firebase, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("set FIREBASE_DATABASE_URL")
	}

	opts := make([]option.ClientOption, 0, 1)
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: databaseURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize realtime database client: %w", err)
	}

	return &Firebase{client: client}, nil
}

func (f *Firebase) donors() *db.Ref {
	return f.client.NewRef(firebaseDonorsPath)
}

func (f *Firebase) requests() *db.Ref {
	return f.client.NewRef(firebaseRequestsPath)
}

func (f *Firebase) Donors(ctx context.Context) ([]*types.Donor, error) {
	var byID map[string]*types.Donor
	if err := f.donors().Get(ctx, &byID); err != nil {
		return nil, fmt.Errorf("failed to fetch donors: %w", err)
	}

	out := make([]*types.Donor, 0, len(byID))
	for id, d := range byID {
		if d == nil {
			continue
		}
		d.ID = id
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Firebase) Donor(ctx context.Context, donorID string) (*types.Donor, error) {
	var donor types.Donor
	if err := f.donors().Child(donorID).Get(ctx, &donor); err != nil {
		return nil, fmt.Errorf("failed to fetch donor: %w", err)
	}

	if donor.ID == "" {
		return nil, types.ErrDonorNotFound
	}

	return &donor, nil
}

func (f *Firebase) CreateDonor(ctx context.Context, donor *types.Donor) error {
	now := time.Now().UTC()
	if donor.ID == "" {
		donor.ID = utils.NanoID()
	}
	donor.CreatedAt = now
	donor.UpdatedAt = now

	err := f.donors().Child(donor.ID).Set(ctx, donor)
	return utils.ErrorWrapOrNil(err, "failed to create donor")
}

func (f *Firebase) UpdateDonor(ctx context.Context, donor *types.Donor) error {
	var missing, conflict bool
	var written types.Donor

	err := f.donors().Child(donor.ID).Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		missing, conflict = false, false

		var current types.Donor
		if err := node.Unmarshal(&current); err != nil {
			return nil, err
		}
		if current.ID == "" {
			missing = true
			return nil, types.ErrDonorNotFound
		}
		if current.Version != donor.Version {
			conflict = true
			return nil, types.ErrDonorConflict
		}

		written = *donor
		written.Version = current.Version + 1
		written.CreatedAt = current.CreatedAt
		written.UpdatedAt = time.Now().UTC()
		return written, nil
	})

	switch {
	case missing:
		return types.ErrDonorNotFound
	case conflict:
		return types.ErrDonorConflict
	case err != nil:
		return fmt.Errorf("failed to update donor: %w", err)
	}

	*donor = written
	return nil
}

func (f *Firebase) DeleteDonor(ctx context.Context, donorID string) error {
	if _, err := f.Donor(ctx, donorID); err != nil {
		return err
	}

	err := f.donors().Child(donorID).Delete(ctx)
	return utils.ErrorWrapOrNil(err, "failed to delete donor")
}

func (f *Firebase) Requests(ctx context.Context) ([]*types.EmergencyRequest, error) {
	var byID map[string]*types.EmergencyRequest
	if err := f.requests().Get(ctx, &byID); err != nil {
		return nil, fmt.Errorf("failed to fetch emergency requests: %w", err)
	}

	out := make([]*types.EmergencyRequest, 0, len(byID))
	for id, r := range byID {
		if r == nil {
			continue
		}
		r.ID = id
		if r.MatchedDonorIDs == nil {
			r.MatchedDonorIDs = []string{}
		}
		out = append(out, r)
	}
	sortRequests(out)
	return out, nil
}

func (f *Firebase) Request(ctx context.Context, requestID string) (*types.EmergencyRequest, error) {
	var req types.EmergencyRequest
	if err := f.requests().Child(requestID).Get(ctx, &req); err != nil {
		return nil, fmt.Errorf("failed to fetch emergency request: %w", err)
	}

	if req.ID == "" {
		return nil, types.ErrRequestNotFound
	}
	if req.MatchedDonorIDs == nil {
		req.MatchedDonorIDs = []string{}
	}

	return &req, nil
}

func (f *Firebase) CreateRequest(ctx context.Context, req *types.EmergencyRequest) error {
	if req.ID == "" {
		req.ID = utils.NanoID()
	}
	stampRequest(req)

	err := f.requests().Child(req.ID).Set(ctx, req)
	return utils.ErrorWrapOrNil(err, "failed to create emergency request")
}

func (f *Firebase) UpdateRequest(ctx context.Context, req *types.EmergencyRequest, expected types.RequestStatus) error {
	var missing, conflict bool

	err := f.requests().Child(req.ID).Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		missing, conflict = false, false

		var current types.EmergencyRequest
		if err := node.Unmarshal(&current); err != nil {
			return nil, err
		}
		if current.ID == "" {
			missing = true
			return nil, types.ErrRequestNotFound
		}
		if current.Status != expected {
			conflict = true
			return nil, types.ErrStatusConflict
		}

		next := req.Clone()
		next.CreatedAt = current.CreatedAt
		next.ExpiresAt = current.ExpiresAt
		return next, nil
	})

	switch {
	case missing:
		return types.ErrRequestNotFound
	case conflict:
		return types.ErrStatusConflict
	}

	return utils.ErrorWrapOrNil(err, "failed to update emergency request")
}

func (f *Firebase) DeleteRequest(ctx context.Context, requestID string) error {
	if _, err := f.Request(ctx, requestID); err != nil {
		return err
	}

	err := f.requests().Child(requestID).Delete(ctx)
	return utils.ErrorWrapOrNil(err, "failed to delete emergency request")
}

func (f *Firebase) CreateNotification(ctx context.Context, n *types.Notification) error {
	if n.ID == "" {
		n.ID = utils.NanoID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	err := f.client.NewRef(firebaseNotificationsPath).Child(n.UserID).Child(n.ID).Set(ctx, n)
	return utils.ErrorWrapOrNil(err, "failed to record notification")
}

func (f *Firebase) NotificationsByUser(ctx context.Context, userID string) ([]*types.Notification, error) {
	var byID map[string]*types.Notification
	if err := f.client.NewRef(firebaseNotificationsPath).Child(userID).Get(ctx, &byID); err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	out := make([]*types.Notification, 0, len(byID))
	for _, n := range byID {
		if n != nil {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Purge deletes every collection. Used to reset an emulator between runs.
func (f *Firebase) Purge(ctx context.Context) error {
	for _, path := range []string{firebaseDonorsPath, firebaseRequestsPath, firebaseNotificationsPath} {
		if err := f.client.NewRef(path).Delete(ctx); err != nil {
			return fmt.Errorf("failed to purge %s: %w", path, err)
		}
	}
	return nil
}
