package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"dummy_device/device-go/internal/device"
)

type deviceResponse struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	DeviceType device.Type  `json:"device_type"`
	State      device.State `json:"state"`
	CreatedAt  int64        `json:"created_at"`
	UpdatedAt  int64        `json:"updated_at"`
}

// deviceCreate accepts both spellings of the type field.
type deviceCreate struct {
	Name            string `json:"name"`
	DeviceType      string `json:"device_type"`
	DeviceTypeCamel string `json:"deviceType"`
}

type deviceCreateInput struct {
	Name       string `validate:"required"`
	DeviceType string `validate:"required,device_type"`
}

type deviceStateUpdate struct {
	State json.RawMessage `json:"state"`
}

func toDevice(d device.Device) deviceResponse {
	return deviceResponse{
		ID:         device.FormatID(d.ID),
		Name:       d.Name,
		DeviceType: d.Type,
		State:      d.State,
		CreatedAt:  d.CreatedAt.Unix(),
		UpdatedAt:  d.UpdatedAt.Unix(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("device_type", func(fl validator.FieldLevel) bool {
		_, err := device.ParseType(fl.Field().String())
		return err == nil
	})
	return v
}

func (r deviceCreate) input() (deviceCreateInput, error) {
	typ := r.DeviceType
	if r.DeviceTypeCamel != "" {
		if typ != "" && typ != r.DeviceTypeCamel {
			return deviceCreateInput{}, errors.New("device_type and deviceType disagree")
		}
		typ = r.DeviceTypeCamel
	}
	return deviceCreateInput{Name: r.Name, DeviceType: typ}, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fieldName(fe.Field())))
		case "device_type":
			msgs = append(msgs, fmt.Sprintf("unknown device type %q", fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fieldName(fe.Field()), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func fieldName(f string) string {
	switch f {
	case "DeviceType":
		return "device_type"
	default:
		return strings.ToLower(f)
	}
}

func (h *Handler) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if !h.ensureStore(w) {
		return
	}

	rows, err := h.devices.List(r.Context())
	if err != nil {
		h.writeStoreError(w, err, "failed to list devices")
		return
	}

	resp := make([]deviceResponse, 0, len(rows))
	for _, d := range rows {
		resp = append(resp, toDevice(d))
	}

	h.writeData(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceCreate
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeDecodeError(w, err)
		return
	}

	in, err := req.input()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(in); err != nil {
		h.writeError(w, http.StatusBadRequest, describeValidation(err))
		return
	}
	typ, err := device.ParseType(in.DeviceType)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.ensureStore(w) {
		return
	}

	d, err := h.devices.Create(r.Context(), in.Name, typ)
	if err != nil {
		h.writeStoreError(w, err, "failed to create device")
		return
	}

	h.writeData(w, http.StatusOK, toDevice(d))
}

func (h *Handler) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if !h.ensureStore(w) {
		return
	}

	d, err := h.devices.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to fetch device")
		return
	}

	h.writeData(w, http.StatusOK, toDevice(d))
}

func (h *Handler) handleUpdateDeviceState(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req deviceStateUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeDecodeError(w, err)
		return
	}
	state, err := device.ParseState(req.State)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.ensureStore(w) {
		return
	}

	d, err := h.devices.UpdateState(r.Context(), id, state)
	if err != nil {
		h.writeStoreError(w, err, "failed to update device state")
		return
	}

	h.writeData(w, http.StatusOK, toDevice(d))
}
