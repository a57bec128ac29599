/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */


package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"mynewt.apache.org/newt/util"
	"mynewt.apache.org/sppd/sppd/sppdutil"
)

type ProfileType int

const (
	PROFILE_TYPE_NONE ProfileType = iota
	PROFILE_TYPE_BLUEZ
	PROFILE_TYPE_SIM
)

var profileTypeNameMap = map[ProfileType]string{
	PROFILE_TYPE_BLUEZ: "bluez",
	PROFILE_TYPE_SIM:   "sim",
	PROFILE_TYPE_NONE:  "???",
}

func ProfileTypeToString(pt ProfileType) string {
	return profileTypeNameMap[pt]
}

func ProfileTypeFromString(s string) (ProfileType, error) {
	for k, v := range profileTypeNameMap {
		if k != PROFILE_TYPE_NONE && s == v {
			return k, nil
		}
	}

	return PROFILE_TYPE_NONE, util.FmtNewtError("Invalid profile type: %s", s)
}

func (pt ProfileType) MarshalJSON() ([]byte, error) {
	return json.Marshal(ProfileTypeToString(pt))
}

func (pt *ProfileType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	var err error
	*pt, err = ProfileTypeFromString(s)
	if err != nil {
		*pt = PROFILE_TYPE_NONE
	}
	return nil
}

// A named platform selection plus the connstring that configures it.
type Profile struct {
	Name       string      `json:"MyName"`
	Type       ProfileType `json:"MyType"`
	ConnString string      `json:"MyConnString"`
}

func NewProfile() *Profile {
	return &Profile{}
}

func (p *Profile) String() string {
	return fmt.Sprintf("name=%s type=%s connstring=%s",
		p.Name, ProfileTypeToString(p.Type), p.ConnString)
}

type ProfileMgr struct {
	fs       afero.Fs
	filename string
	profiles map[string]*Profile
}

func NewProfileMgr(fs afero.Fs, filename string) (*ProfileMgr, error) {
	pm := &ProfileMgr{
		fs:       fs,
		filename: filename,
		profiles: map[string]*Profile{},
	}

	if err := pm.load(); err != nil {
		return nil, err
	}

	return pm, nil
}

func ProfileCfgFilename() (string, error) {
	dir, err := homedir.Dir()
	if err != nil {
		return "", util.NewNewtError(err.Error())
	}

	return filepath.Join(dir, sppdutil.ToolInfo.CfgFilename), nil
}

func (pm *ProfileMgr) load() error {
	log.Debugf("Reading profiles from %s", pm.filename)
	blob, err := afero.ReadFile(pm.fs, pm.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		} else {
			return util.ChildNewtError(err)
		}
	}

	var profiles []*Profile
	if err := json.Unmarshal(blob, &profiles); err != nil {
		return util.FmtNewtError("error reading profile config (%s): %s",
			pm.filename, err.Error())
	}

	for _, p := range profiles {
		pm.profiles[p.Name] = p
	}

	return nil
}

func SortProfiles(ps []*Profile) []*Profile {
	sorted := append([]*Profile(nil), ps...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

func (pm *ProfileMgr) GetProfileList() []*Profile {
	list := make([]*Profile, 0, len(pm.profiles))
	for _, p := range pm.profiles {
		list = append(list, p)
	}

	return SortProfiles(list)
}

func (pm *ProfileMgr) save() error {
	b, err := json.MarshalIndent(pm.GetProfileList(), "", "    ")
	if err != nil {
		return util.NewNewtError(err.Error())
	}

	if err := afero.WriteFile(pm.fs, pm.filename, b, 0644); err != nil {
		return util.ChildNewtError(err)
	}

	return nil
}

func (pm *ProfileMgr) AddProfile(p *Profile) error {
	if p.Name == "" {
		return util.NewNewtError("profile name required")
	}
	if p.Type == PROFILE_TYPE_NONE {
		return util.FmtNewtError("profile \"%s\" has no type", p.Name)
	}
	if _, err := ParseConnString(p.ConnString); err != nil {
		return err
	}

	pm.profiles[p.Name] = p
	return pm.save()
}

func (pm *ProfileMgr) DeleteProfile(name string) error {
	if pm.profiles[name] == nil {
		return util.FmtNewtError("profile \"%s\" doesn't exist", name)
	}

	delete(pm.profiles, name)
	return pm.save()
}

func (pm *ProfileMgr) GetProfile(name string) (*Profile, error) {
	p := pm.profiles[name]
	if p == nil {
		return nil, util.FmtNewtError("profile \"%s\" doesn't exist", name)
	}

	return p, nil
}

var globalProfileMgr *ProfileMgr

func GlobalProfileMgr() *ProfileMgr {
	if globalProfileMgr == nil {
		panic("profile manager not initialized")
	}
	return globalProfileMgr
}

func InitGlobalProfileMgr() error {
	if globalProfileMgr != nil {
		return util.NewNewtError("profile manager initialized twice")
	}

	filename, err := ProfileCfgFilename()
	if err != nil {
		return err
	}

	globalProfileMgr, err = NewProfileMgr(afero.NewOsFs(), filename)
	return err
}
